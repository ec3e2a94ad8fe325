package tool

// Registry holds the tools the server exposes. It is filled at startup and
// only read afterwards.
type Registry interface {
	// Register adds a tool. Registering a duplicate name fails with
	// ErrToolExists.
	Register(tool Tool) error

	// Get retrieves a tool by name.
	Get(name string) (Tool, bool)

	// List returns all registered tools sorted by name.
	List() []Tool

	// Names returns all registered tool names sorted.
	Names() []string
}
