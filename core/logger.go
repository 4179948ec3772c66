package core

// Person identifies the user on whose behalf something is logged.
// Loggers attach it to the report instead of printing it.
type Person struct {
	ID       string
	Username string
	Email    string
}

// Logger is any service that can log/report messages.
// expected args fmt: error, map[string]interface{}, Person
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
