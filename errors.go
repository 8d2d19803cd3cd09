package coil

import (
	"errors"
	"fmt"
)

// Kind classifies failures of the graphics core.
type Kind uint8

// Error kinds.
const (
	// KindUnknown is reported by KindOf for errors that do not carry a kind.
	KindUnknown Kind = iota

	// Validation is API misuse: unknown enum, no pipeline bound at draw,
	// oversized transient allocation.
	Validation

	// Resource is device, memory or pool exhaustion.
	Resource

	// DeviceLost is unrecoverable; the device must be recreated.
	DeviceLost

	// SurfaceLost is unrecoverable; the surface must be recreated.
	SurfaceLost

	// Suboptimal means the swapchain no longer matches the surface.
	// The presenter swallows it and recreates the swapchain on the next frame.
	Suboptimal

	// ShaderTypeMismatch is an ill-typed shader expression.
	ShaderTypeMismatch

	// ShaderUnknownBuiltin is a builtin variable not valid in its stage.
	ShaderUnknownBuiltin

	// ShaderUnsupportedOp is an IR operation the compiler cannot lower.
	ShaderUnsupportedOp
)

var kindNames = [...]string{
	KindUnknown:          "UNKNOWN",
	Validation:           "VALIDATION",
	Resource:             "RESOURCE",
	DeviceLost:           "DEVICE_LOST",
	SurfaceLost:          "SURFACE_LOST",
	Suboptimal:           "SUBOPTIMAL",
	ShaderTypeMismatch:   "SHADER_TYPE_MISMATCH",
	ShaderUnknownBuiltin: "SHADER_UNKNOWN_BUILTIN",
	ShaderUnsupportedOp:  "SHADER_UNSUPPORTED_OP",
}

// String returns the upper-case name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Sentinel errors, one per kind. errors.Is(err, ErrValidation) reports
// whether err is an *Error of kind Validation.
var (
	ErrValidation           = errors.New("coil: validation")
	ErrResource             = errors.New("coil: resource exhausted")
	ErrDeviceLost           = errors.New("coil: device lost")
	ErrSurfaceLost          = errors.New("coil: surface lost")
	ErrSuboptimal           = errors.New("coil: swapchain suboptimal")
	ErrShaderTypeMismatch   = errors.New("coil: shader type mismatch")
	ErrShaderUnknownBuiltin = errors.New("coil: unknown shader builtin")
	ErrShaderUnsupportedOp  = errors.New("coil: unsupported shader op")
)

func (k Kind) sentinel() error {
	switch k {
	case Validation:
		return ErrValidation
	case Resource:
		return ErrResource
	case DeviceLost:
		return ErrDeviceLost
	case SurfaceLost:
		return ErrSurfaceLost
	case Suboptimal:
		return ErrSuboptimal
	case ShaderTypeMismatch:
		return ErrShaderTypeMismatch
	case ShaderUnknownBuiltin:
		return ErrShaderUnknownBuiltin
	case ShaderUnsupportedOp:
		return ErrShaderUnsupportedOp
	}
	return nil
}

// Error is a classified failure. Op names the operation that failed,
// Err carries the underlying cause (may be nil).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := "coil: " + e.Op + ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Errorf builds an *Error with a formatted cause. %w verbs are honored.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindUnknown when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
