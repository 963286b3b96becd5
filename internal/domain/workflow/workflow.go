// Пакет workflow — конечные автоматы рассмотрения заявок и обращений.
//
// Два жизненных цикла:
//   - заявка на вступление: Pending → Approved | Rejected (оба конечные,
//     отклонение требует причину)
//   - обращение: New → Responded (конечный)
//
// Автоматы не хранят состояние: текущий статус лежит в записи,
// функции переходов только проверяют допустимость и возвращают целевой статус.
package workflow

import (
	"fmt"
	"strings"
)

// ApplicationStatus — статус заявки на вступление.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "Pending"
	ApplicationApproved ApplicationStatus = "Approved"
	ApplicationRejected ApplicationStatus = "Rejected"
)

// ApplicationAction — действие рецензента над заявкой.
type ApplicationAction string

const (
	ActionApprove ApplicationAction = "approve"
	ActionReject  ApplicationAction = "reject"
)

// InquiryStatus — статус обращения.
type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "New"
	InquiryResponded InquiryStatus = "Responded"
)

// Коды ошибок переходов.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeReasonRequired    = "REASON_REQUIRED"
)

// applicationTransitions — матрица допустимых переходов заявки.
// Ключ — текущий статус, значение — действие → целевой статус.
var applicationTransitions = map[ApplicationStatus]map[ApplicationAction]ApplicationStatus{
	ApplicationPending: {
		ActionApprove: ApplicationApproved,
		ActionReject:  ApplicationRejected,
	},
	ApplicationApproved: {}, // Конечный статус
	ApplicationRejected: {}, // Конечный статус
}

// inquiryTransitions — матрица допустимых переходов обращения.
var inquiryTransitions = map[InquiryStatus]map[InquiryStatus]bool{
	InquiryNew:       {InquiryResponded: true},
	InquiryResponded: {},
}

// IsValidApplicationStatus проверяет, что статус входит в объявленный набор.
func IsValidApplicationStatus(s ApplicationStatus) bool {
	_, ok := applicationTransitions[s]
	return ok
}

// IsValidInquiryStatus проверяет, что статус входит в объявленный набор.
func IsValidInquiryStatus(s InquiryStatus) bool {
	_, ok := inquiryTransitions[s]
	return ok
}

// Approve проверяет переход заявки по действию approve.
func Approve(from ApplicationStatus) (ApplicationStatus, error) {
	return applyApplication(from, ActionApprove)
}

// Reject проверяет переход заявки по действию reject.
// Пустая (после обрезки пробелов) причина — ошибка REASON_REQUIRED.
func Reject(from ApplicationStatus, reason string) (ApplicationStatus, error) {
	to, err := applyApplication(from, ActionReject)
	if err != nil {
		return from, err
	}
	if strings.TrimSpace(reason) == "" {
		return from, &TransitionError{
			Code:    CodeReasonRequired,
			Message: "для отклонения заявки требуется причина",
		}
	}
	return to, nil
}

// Respond проверяет переход обращения New → Responded.
func Respond(from InquiryStatus) (InquiryStatus, error) {
	if !IsValidInquiryStatus(from) {
		return from, &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("недопустимый текущий статус обращения: %q", from),
		}
	}
	if !inquiryTransitions[from][InquiryResponded] {
		return from, &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("переход %s → %s недопустим", from, InquiryResponded),
		}
	}
	return InquiryResponded, nil
}

func applyApplication(from ApplicationStatus, action ApplicationAction) (ApplicationStatus, error) {
	actions, ok := applicationTransitions[from]
	if !ok {
		return from, &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("недопустимый текущий статус заявки: %q", from),
		}
	}
	to, ok := actions[action]
	if !ok {
		return from, &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("действие %s недопустимо для заявки в статусе %s", action, from),
		}
	}
	return to, nil
}

// TransitionError — ошибка перехода между статусами.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION, REASON_REQUIRED)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
