package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Quiz{},
		&Question{},
		&QuizAttempt{},
		&UserAnswer{},
		&QuizAssignment{},
		&AccessRequest{},
		&ActivityLog{},
		&Notification{},
	}
}
