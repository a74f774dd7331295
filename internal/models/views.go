package models

// AssignmentView is an assignment joined with display fields.
type AssignmentView struct {
	QuizAssignment
	Username  string `json:"username"`
	QuizTitle string `json:"quiz_title"`
}

// AccessRequestView is an access request joined with the requester and quiz.
type AccessRequestView struct {
	AccessRequest
	Username  string `json:"username"`
	QuizTitle string `json:"quiz_title"`
}

// AttemptView is an attempt joined with the quiz title and the attempting user.
type AttemptView struct {
	QuizAttempt
	Username  string `json:"username"`
	QuizTitle string `json:"quiz_title"`
}
