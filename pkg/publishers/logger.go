package publishers

// Logger is the structured-object logging surface a publisher needs. The
// package takes it as a parameter instead of importing the app logger, so it
// stays usable from other binaries.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// noopLogger discards everything; backs publishers built without a logger.
type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

// loggerOrNoop lets publisher constructors accept a nil logger.
func loggerOrNoop(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
