package errors

// Category codes. See the package documentation for the code format.
const (
	CategoryConfiguration   = 1
	CategoryPrecondition    = 2
	CategoryExternalCommand = 3
	CategoryRender          = 4
)

// Exit statuses per category.
const (
	ExitConfiguration   = 2
	ExitPrecondition    = 3
	ExitExternalCommand = 4
	ExitRender          = 5
)

// MakeCode builds an error code from category and sequence.
func MakeCode(category, sequence int) int {
	return category*100 + sequence
}

// ParseCode splits an error code into category and sequence.
func ParseCode(code int) (category, sequence int) {
	return code / 100, code % 100
}

// ============================================================================
// Configuration Errors (Category: 01)
// ============================================================================

var (
	// ErrConfiguration indicates invalid converger input.
	ErrConfiguration = Register(&Errno{
		Code:    MakeCode(CategoryConfiguration, 0),
		Exit:    ExitConfiguration,
		Message: "Invalid configuration",
	})

	// ErrTLSMaterial indicates ambiguous or insufficient TLS credential material.
	ErrTLSMaterial = Register(&Errno{
		Code:    MakeCode(CategoryConfiguration, 1),
		Exit:    ExitConfiguration,
		Message: "Ambiguous or insufficient TLS material",
	})

	// ErrDialect indicates an unsupported database client dialect.
	ErrDialect = Register(&Errno{
		Code:    MakeCode(CategoryConfiguration, 2),
		Exit:    ExitConfiguration,
		Message: "Unsupported database client dialect",
	})

	// ErrOrderingCycle indicates a cycle in the resource ordering graph.
	ErrOrderingCycle = Register(&Errno{
		Code:    MakeCode(CategoryConfiguration, 3),
		Exit:    ExitConfiguration,
		Message: "Resource ordering graph contains a cycle",
	})
)

// ============================================================================
// Precondition Errors (Category: 02)
// ============================================================================

var (
	// ErrPrecondition indicates required base state is missing on the target.
	ErrPrecondition = Register(&Errno{
		Code:    MakeCode(CategoryPrecondition, 0),
		Exit:    ExitPrecondition,
		Message: "Required base state not present",
	})
)

// ============================================================================
// External Command Errors (Category: 03)
// ============================================================================

var (
	// ErrExternalCommand indicates an external command failed.
	ErrExternalCommand = Register(&Errno{
		Code:    MakeCode(CategoryExternalCommand, 0),
		Exit:    ExitExternalCommand,
		Message: "External command failed",
	})

	// ErrPackageInstall indicates the package manager failed.
	ErrPackageInstall = Register(&Errno{
		Code:    MakeCode(CategoryExternalCommand, 1),
		Exit:    ExitExternalCommand,
		Message: "Package installation failed",
	})

	// ErrSchemaCheck indicates the schema pre-check failed for a reason other
	// than the schema being absent (authentication, connectivity).
	ErrSchemaCheck = Register(&Errno{
		Code:    MakeCode(CategoryExternalCommand, 2),
		Exit:    ExitExternalCommand,
		Message: "Schema pre-check failed",
	})

	// ErrSchemaImport indicates the one-time schema import command failed.
	// Never retried: a partially applied import needs manual inspection.
	ErrSchemaImport = Register(&Errno{
		Code:    MakeCode(CategoryExternalCommand, 3),
		Exit:    ExitExternalCommand,
		Message: "Schema import failed",
	})
)

// ============================================================================
// Render Errors (Category: 04)
// ============================================================================

var (
	// ErrRender indicates the attribute renderer hit an internal invariant
	// violation, such as an unresolvable key collision.
	ErrRender = Register(&Errno{
		Code:    MakeCode(CategoryRender, 0),
		Exit:    ExitRender,
		Message: "Attribute render invariant violated",
	})
)
