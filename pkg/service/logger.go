package service

// Logger defines the logging interface shared by the services in this
// package. Satisfied by *logrus.Logger; tests pass a no-op.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
