package core

// Logger is any service that can log messages.
// args can hold an error, a map[string]interface{} of extras or the acting user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies the user on whose behalf something is logged.
type Actor struct {
	ID    string
	Name  string
	Email string
}
