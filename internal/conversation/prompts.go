package conversation

import (
	"fmt"
	"strings"

	"ai-doctor/internal/diagnosis"
)

// prompts.go holds the Vietnamese prompt templates handed to the
// text-generation service. Keeping them together makes them easy to
// tweak without touching the orchestration logic.

// SystemPrompt frames every diagnosis request.
const SystemPrompt = `Bạn là AI Doctor, một trợ lý y tế thông minh.

Nhiệm vụ của bạn:
1. Lắng nghe và phân tích các triệu chứng mà người dùng mô tả
2. Đặt câu hỏi bổ sung để hiểu rõ hơn về tình trạng sức khỏe
3. Dựa trên cơ sở tri thức y tế, đưa ra chẩn đoán sơ bộ với độ tin cậy
4. Đề xuất các bước điều trị và khuyến nghị phù hợp
5. Cảnh báo các dấu hiệu nguy hiểm cần đi khám ngay

Quy tắc quan trọng:
- Luôn thân thiện, đồng cảm và chuyên nghiệp
- Đặt câu hỏi rõ ràng, cụ thể
- Giải thích y học bằng ngôn ngữ dễ hiểu
- LUÔN nhắc nhở: Đây chỉ là tham khảo, cần gặp bác sĩ chuyên khoa
- Cảnh báo ngay khi phát hiện triệu chứng nghiêm trọng

Phong cách giao tiếp:
- Sử dụng emoji phù hợp (🏥 💊 ⚠️ 💡)
- Trả lời có cấu trúc rõ ràng
- Ưu tiên sự an toàn của người dùng`

// FallbackMessage replaces the reply whenever the text-generation
// service fails or answers empty. The turn always responds.
const FallbackMessage = "❌ Xin lỗi, tôi không thể tạo phản hồi lúc này. Vui lòng thử lại."

// WarningMessage is appended to API responses for the presentation layer.
const WarningMessage = "⚠️ Hệ thống này chỉ mang tính chất tham khảo và học tập. " +
	"Luôn tham khảo ý kiến bác sĩ chuyên khoa khi có vấn đề về sức khỏe."

// diagnosisPrompt flattens symptom info, knowledge context, bounded chat
// history and the current input into the single diagnosis request string.
func diagnosisPrompt(userInput, symptomsInfo, knowledgeContext, chatHistory string) string {
	if chatHistory == "" {
		chatHistory = "Chưa có lịch sử"
	}
	if symptomsInfo == "" {
		symptomsInfo = "Chưa có triệu chứng được xác định"
	}
	return fmt.Sprintf(`%s

**THÔNG TIN TRIỆU CHỨNG:**

%s

**CƠ SỞ TRI THỨC Y TẾ:**

%s

---

**LỊCH SỬ HỘI THOẠI:**

%s

---

**CÂU HỎI/TRIỆU CHỨNG MỚI:** %s

**HƯỚNG DẪN PHÂN TÍCH:**

1. Phân tích tất cả các triệu chứng đã được mô tả
2. So sánh với cơ sở tri thức y tế
3. Xác định các bệnh có khả năng cao nhất
4. Đánh giá mức độ nghiêm trọng
5. Đưa ra chẩn đoán sơ bộ với độ tin cậy (%%)
6. Đề xuất điều trị và khuyến nghị
7. Cảnh báo nếu cần đi khám ngay

**ĐỊNH DẠNG TRẢ LỜI:**

Sử dụng format rõ ràng với:
- 🔍 Phân tích triệu chứng
- 🏥 Chẩn đoán sơ bộ (kèm độ tin cậy)
- 💊 Khuyến nghị điều trị
- ⚠️ Cảnh báo (nếu có)
- 💡 Lời khuyên

**TRẢ LỜI:**`, SystemPrompt, symptomsInfo, knowledgeContext, chatHistory, userInput)
}

// followUpPrompt asks for two to three clarifying questions grounded on
// the current symptoms and candidate diseases.
func followUpPrompt(symptoms []string, diseaseNames []string) string {
	return fmt.Sprintf(`Dựa trên các triệu chứng hiện tại:
%s

Và các bệnh có thể:
%s

Hãy đặt 2-3 câu hỏi bổ sung để xác định chính xác hơn tình trạng sức khỏe.
Câu hỏi nên:
- Cụ thể và dễ trả lời
- Giúp phân biệt giữa các bệnh
- Liên quan đến mức độ, thời gian, hoặc triệu chứng đi kèm`,
		strings.Join(symptoms, ", "), strings.Join(diseaseNames, ", "))
}

// clarifyPrompt is used when nothing in the knowledge base matched yet.
func clarifyPrompt(userInput string) string {
	return fmt.Sprintf(`%s

Người dùng nói: %s

Chưa xác định được triệu chứng cụ thể nào. Hãy trả lời đồng cảm và đặt 1-2
câu hỏi ngắn để người dùng mô tả rõ hơn về triệu chứng của họ.`, SystemPrompt, userInput)
}

// severityPrompt asks for a JSON severity assessment.
func severityPrompt(symptoms []string) string {
	return fmt.Sprintf(`Đánh giá mức độ nghiêm trọng của các triệu chứng sau:
%s

Trả lời theo format JSON:
{
    "severity_level": "mild/moderate/severe/critical",
    "urgency": "can_wait/should_see_doctor_soon/emergency",
    "explanation": "Giải thích ngắn gọn"
}`, strings.Join(symptoms, ", "))
}

// treatmentPrompt asks for treatment recommendations for a diagnosis.
func treatmentPrompt(topDiagnosis string, symptoms []string) string {
	return fmt.Sprintf(`Dựa trên chẩn đoán: %s
Và các triệu chứng: %s

Hãy đưa ra khuyến nghị điều trị bao gồm:
1. Các bước tự chăm sóc tại nhà
2. Thuốc không kê đơn có thể dùng (nếu phù hợp)
3. Khi nào cần gặp bác sĩ
4. Các lưu ý quan trọng

Lưu ý: Luôn nhắc nhở đây chỉ là tham khảo, cần tham khảo bác sĩ.`,
		topDiagnosis, strings.Join(symptoms, ", "))
}

// symptomsInfo renders the identified symptoms and top candidates as the
// grounding block inside the diagnosis prompt.
func symptomsInfo(a diagnosis.Analysis) string {
	var b strings.Builder
	b.WriteString("**Triệu chứng đã xác định:**\n")
	if len(a.Symptoms) == 0 {
		b.WriteString("Chưa xác định được triệu chứng cụ thể")
	} else {
		for _, s := range a.Symptoms {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	if len(a.Matches) > 0 {
		b.WriteString("\n**Các bệnh có khả năng cao:**\n")
		for i, m := range a.Matches {
			if i >= 3 {
				break
			}
			desc := m.Disease.Description
			if desc == "" {
				desc = "N/A"
			}
			fmt.Fprintf(&b, "%d. %s (Độ khớp: %.0f%%, Độ tin cậy: %.0f%%)\n",
				i+1, m.Disease.Name, m.Score*100, diagnosis.Confidence(m)*100)
			fmt.Fprintf(&b, "   - Mô tả: %s\n", desc)
		}
	}
	return b.String()
}
