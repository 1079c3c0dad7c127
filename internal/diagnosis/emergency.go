package diagnosis

import (
	"fmt"
	"strings"
)

// emergencyKeywords is the fixed danger list. Order matters: the first
// hit is the one reported.
var emergencyKeywords = []string{
	"khó thở",
	"đau ngực",
	"bất tỉnh",
	"co giật",
	"chảy máu nhiều",
	"đau đầu dữ dội",
	"liệt",
	"mất ý thức",
	"sốc",
	"ngộ độc",
	"sốt cao",
	"đau bụng dữ dội",
}

// Escalation is the terminal override response for a turn in which a
// danger keyword was detected.
type Escalation struct {
	Keyword string
	Message string
}

// DetectEmergency scans text for danger keywords, case-insensitively.
// Any substring hit is terminal for the turn: the caller must skip
// ranking, confidence scoring and text generation. Only the first hit is
// reported.
func DetectEmergency(text string) *Escalation {
	folded := strings.ToLower(text)
	for _, keyword := range emergencyKeywords {
		if strings.Contains(folded, keyword) {
			return &Escalation{
				Keyword: keyword,
				Message: escalationMessage(keyword),
			}
		}
	}
	return nil
}

// DetectEmergencyInSymptoms runs the same scan over the joined
// accumulated symptom set.
func DetectEmergencyInSymptoms(symptoms []string) *Escalation {
	return DetectEmergency(strings.Join(symptoms, " "))
}

func escalationMessage(keyword string) string {
	return fmt.Sprintf(`⚠️⚠️⚠️ **CẢNH BÁO KHẨN CẤP** ⚠️⚠️⚠️

Bạn đã đề cập đến triệu chứng **"%s"** - đây có thể là dấu hiệu nghiêm trọng!

🚨 **HÀNH ĐỘNG NGAY LẬP TỨC:**
1. **Gọi cấp cứu 115** hoặc
2. **Đến bệnh viện gần nhất** ngay
3. **KHÔNG tự điều trị** tại nhà

Đây là tình huống khẩn cấp cần được xử lý bởi chuyên gia y tế ngay lập tức!

⏰ **THỜI GIAN LÀ VÀNG** - Đừng chần chừ!`, keyword)
}
