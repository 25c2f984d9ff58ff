package domain

// TrailLogger records pipeline events for the current run.
// Services should depend on this interface rather than concrete implementations.
type TrailLogger interface {
	Log(action string, actor string, metadata map[string]interface{}) error
}
