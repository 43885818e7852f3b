package ver

import "fmt"

// Populated through -ldflags at build time.
var (
	Git     string
	Compile string
	Date    string
)

// Version .
func Version() string {
	return fmt.Sprintf(`networking-ovn
Git: %s
Compile: %s
Built: %s`, Git, Compile, Date)
}
