package types

import (
	"fmt"
	"strings"
)

// SpecialForm enumerates the runtime singletons that need special
// treatment: `typing.Literal`, `typing.Union`, etc. are themselves objects
// with a type (the type of `typing.Union` itself, not of `Union[int,
// str]`), and that type needs its own truthiness/repr/containing-class/
// module-origin/parameterization rules.
type SpecialForm int

const (
	FormAnnotated SpecialForm = iota
	FormLiteral
	FormLiteralString
	FormOptional
	FormUnion
	FormNoReturn
	FormNever
	FormAny
	FormTuple
	FormType
	FormTypingSelf
	FormFinal
	FormClassVar
	FormCallable
	FormConcatenate
	FormUnpack
	FormRequired
	FormNotRequired
	FormTypeAlias
	FormTypeGuard
	FormTypedDict
	FormTypeIs
	FormReadOnly
	FormProtocol
	FormGeneric
	// Internal extensions beyond what `typing`/`typing_extensions` export.
	FormUnknown
	FormAlwaysTruthy
	FormAlwaysFalsy
	FormNot
	FormIntersection
	FormTypeOf
	FormCallableTypeOf
)

var specialFormNames = [...]string{
	"Annotated", "Literal", "LiteralString", "Optional", "Union", "NoReturn",
	"Never", "Any", "Tuple", "Type", "Self", "Final", "ClassVar", "Callable",
	"Concatenate", "Unpack", "Required", "NotRequired", "TypeAlias",
	"TypeGuard", "TypedDict", "TypeIs", "ReadOnly", "Protocol", "Generic",
	"Unknown", "AlwaysTruthy", "AlwaysFalsy", "Not", "Intersection",
	"TypeOf", "CallableTypeOf",
}

func (f SpecialForm) String() string {
	if int(f) < len(specialFormNames) {
		return specialFormNames[f]
	}
	return "?"
}

// ModuleOrigin reports which module a SpecialForm is imported from for
// display and for `from typing import X` vs `from typing_extensions import
// X` resolution. Forms added after `typing_extensions` existed (and the
// internal-only extensions) report OriginTypingExtensions/OriginInternal.
type ModuleOrigin int

const (
	OriginTyping ModuleOrigin = iota
	OriginTypingExtensions
	OriginInternal
)

func (f SpecialForm) ModuleOrigin() ModuleOrigin {
	switch f {
	case FormUnknown, FormAlwaysTruthy, FormAlwaysFalsy, FormNot, FormIntersection, FormTypeOf, FormCallableTypeOf:
		return OriginInternal
	case FormTypeAlias, FormRequired, FormNotRequired, FormTypeGuard, FormTypeIs, FormReadOnly, FormConcatenate, FormUnpack, FormTypingSelf, FormLiteralString:
		return OriginTypingExtensions
	default:
		return OriginTyping
	}
}

// Truthy reports the SpecialForm object's own truthiness (as an object,
// `bool(typing.Union)`), which is always true — every typing construct is
// a non-null singleton object.
func (f SpecialForm) Truthy() bool { return true }

// ContainingClass is the synthesized class typing special forms report for
// attribute lookup (`typing.Union.__class__` is `typing._SpecialForm`).
func (f SpecialForm) ContainingClass() string {
	switch f {
	case FormCallable, FormTuple, FormType, FormProtocol, FormGeneric, FormTypedDict:
		return "typing._GenericAlias"
	default:
		return "typing._SpecialForm"
	}
}

// ParameterizationRule says how many and what shape of subscript argument
// a form accepts. EvalTypeExpression does not consult it;
// evalParameterizedForm checks argument counts per form itself.
type ParameterizationRule int

const (
	ParamRuleNone           ParameterizationRule = iota // not subscriptable
	ParamRuleSingleType                                 // Optional[T], ClassVar[T], ...
	ParamRuleTypeList                                   // Union[X, Y, ...], Literal[...]
	ParamRuleCallableShape                              // Callable[[params], ret]
	ParamRuleTupleShape                                 // tuple[X, Y, ...] / tuple[X, ...]
)

func (f SpecialForm) ParameterizationRule() ParameterizationRule {
	switch f {
	case FormOptional, FormClassVar, FormFinal, FormRequired, FormNotRequired, FormReadOnly, FormTypeGuard, FormTypeIs, FormUnpack, FormTypeOf:
		return ParamRuleSingleType
	case FormUnion, FormLiteral, FormAnnotated, FormIntersection:
		return ParamRuleTypeList
	case FormCallable, FormCallableTypeOf, FormConcatenate:
		return ParamRuleCallableShape
	case FormTuple:
		return ParamRuleTupleShape
	default:
		return ParamRuleNone
	}
}

// KnownInstance is the Type of one of these singleton objects once
// evaluated as a value (not as a type expression) — e.g. the expression
// `typing.Union` standing alone, or a parameterized alias object like
// `list[int]` before it is used in a type position.
//
// Its truthiness is always AlwaysTrue regardless of Form: a typing
// construct is never falsy even when its Form is itself about falsiness
// (e.g. `bool(typing.Never)` is true; Never describes values, not itself).
type KnownInstance struct {
	Form SpecialForm
	Args []Type
}

func (k KnownInstance) String() string {
	if len(k.Args) == 0 {
		return k.Form.String()
	}
	parts := make([]string, len(k.Args))
	for i, a := range k.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", k.Form, strings.Join(parts, ", "))
}
func (KnownInstance) typ() {}

func (k KnownInstance) Union(other Type) Type     { return unionOf(k, other) }
func (k KnownInstance) Intersect(other Type) Type { return intersectOf(k, other) }
func (k KnownInstance) SubtypeOf(other Type) bool {
	if o, ok := other.(KnownInstance); ok {
		return k.Form == o.Form
	}
	return subtypeOf(k, other)
}

// Bool returns this KnownInstance's truthiness. Always AlwaysTrue: see the
// doc comment above.
func (k KnownInstance) Bool() Truthiness { return AlwaysTrue }

// Truthiness is the three-way truth value a type's instances report. Only
// KnownInstance.Bool returns one; narrowing uses the AlwaysTruthy/
// AlwaysFalsy wrapper types instead.
type Truthiness int

const (
	AlwaysTrue Truthiness = iota
	AlwaysFalse
	Ambiguous
)
