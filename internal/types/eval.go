package types

import (
	"fmt"

	"github.com/tycore/tycore/internal/pyast"
)

// Resolver is the lookup surface EvalTypeExpression/EvalAnnotationExpression
// need from whatever owns name binding (internal/semindex + internal/usedef
// in the full engine, or a test double): resolve a bare name to its value
// type, resolve an attribute access, and recognize which SpecialForm a
// resolved value stands for (so `typing.Union[int, str]` and `Union[int,
// str]` after a `from typing import Union` both parameterize the same way).
type Resolver interface {
	ResolveName(name string) (Type, bool)
	ResolveAttribute(base Type, attr string) (Type, bool)
	SpecialFormOf(v Type) (SpecialForm, bool)
	// There is no separate class lookup: subscripting a bare class
	// reference (`list[int]`, `MyClass[T]`) specializes the ClassLiteral
	// that ResolveName or ResolveAttribute returns.
}

// EvalTypeExpression evaluates expr in a type-expression position: bare
// names, subscripts, `X | Y` unions, `Literal[...]`, `Callable[...]`,
// `tuple[...]`, and so on. An annotation-only qualifier (ClassVar/Final/
// ...) reached here strips to its inner type with no qualifier bit
// recorded; only EvalAnnotationExpression reports qualifier bits.
func EvalTypeExpression(r Resolver, expr pyast.Expr) (Type, error) {
	switch e := expr.(type) {
	case *pyast.Constant:
		return evalConstantType(e)
	case *pyast.Name:
		v, ok := r.ResolveName(e.Id)
		if !ok {
			return UnknownType, nil
		}
		return valueAsTypeExpression(r, v)
	case *pyast.Attribute:
		base, err := EvalTypeExpression(r, e.Value)
		if err != nil {
			return nil, err
		}
		v, ok := r.ResolveAttribute(base, e.Attr)
		if !ok {
			return UnknownType, nil
		}
		return valueAsTypeExpression(r, v)
	case *pyast.BinOp:
		if e.Op != "|" {
			return nil, fmt.Errorf("operator %q is not valid in a type expression", e.Op)
		}
		left, err := EvalTypeExpression(r, e.Left)
		if err != nil {
			return nil, err
		}
		right, err := EvalTypeExpression(r, e.Right)
		if err != nil {
			return nil, err
		}
		return NormalizeUnion([]Type{left, right}), nil
	case *pyast.Subscript:
		return evalSubscript(r, e)
	case *pyast.TupleExpr:
		// A bare tuple only appears in type-expression position inside an
		// enclosing subscript's args list; evalSubscript unpacks that
		// itself, so reaching here means `(X, Y)` was used directly as an
		// annotation, which Python also accepts as a tuple-of-types shape
		// equivalent to `tuple[X, Y]`.
		elts := make([]Type, len(e.Elts))
		for i, el := range e.Elts {
			t, err := EvalTypeExpression(r, el)
			if err != nil {
				return nil, err
			}
			elts[i] = t
		}
		return Instance{Class: ClassType{QualName: "tuple", Known: ClassTuple}, Specialization: elts}, nil
	case *pyast.List:
		// `[X, Y]` inside `Callable[[X, Y], Z]`'s parameter-list position;
		// callers that reach this directly (outside a Callable subscript)
		// get the same element-type list back for the caller to shape.
		elts := make([]Type, len(e.Elts))
		for i, el := range e.Elts {
			t, err := EvalTypeExpression(r, el)
			if err != nil {
				return nil, err
			}
			elts[i] = t
		}
		return Instance{Class: ClassType{QualName: "list", Known: ClassList}, Specialization: elts}, nil
	default:
		return UnknownType, nil
	}
}

func evalConstantType(c *pyast.Constant) (Type, error) {
	switch c.Kind {
	case pyast.ConstNone:
		return NoneType{}, nil
	case pyast.ConstEllipsis:
		return UnknownType, nil
	case pyast.ConstString:
		// Forward references ("MyClass") are deferred: the full engine
		// would reparse the string as an expression in the enclosing scope
		// and recurse; without that wiring here, a bare string in a type
		// expression returns Unknown rather than panicking.
		return UnknownType, nil
	default:
		return nil, fmt.Errorf("constant of kind %v is not valid in a type expression", c.Kind)
	}
}

// valueAsTypeExpression converts a name's resolved *value* type into the
// type it denotes as a type expression: a ClassLiteral denotes its
// Instance, a KnownInstance for a special form denotes that form used
// unparameterized (e.g. bare `Callable`, `Tuple`), everything else is
// passed through unchanged (already a type, e.g. a TypeVarType).
func valueAsTypeExpression(r Resolver, v Type) (Type, error) {
	if form, ok := r.SpecialFormOf(v); ok {
		return evalBareSpecialForm(form)
	}
	if cl, ok := v.(ClassLiteral); ok {
		return cl.Class.ToInstance(), nil
	}
	return v, nil
}

func evalBareSpecialForm(form SpecialForm) (Type, error) {
	switch form {
	case FormAny:
		return AnyType, nil
	case FormNever, FormNoReturn:
		return Never{}, nil
	default:
		return KnownInstance{Form: form}, nil
	}
}

func evalSubscript(r Resolver, e *pyast.Subscript) (Type, error) {
	base, err := EvalTypeExpression(r, e.Value)
	if err != nil {
		return nil, err
	}
	args, err := SubscriptArgs(r, e.Slice)
	if err != nil {
		return nil, err
	}

	if form, ok := formOfSubscriptTarget(r, e.Value); ok {
		return evalParameterizedForm(form, args)
	}

	switch t := base.(type) {
	case ClassLiteral:
		return t.Class.ToInstance(args...), nil
	case Instance:
		return Instance{Class: t.Class, Specialization: args}, nil
	default:
		return UnknownType, nil
	}
}

// formOfSubscriptTarget re-resolves e.Value as a *value* (not a type
// expression) to recover the SpecialForm a bare `Union`/`Literal`/...
// subscript target denotes, since EvalTypeExpression on the same node
// already converted it to the form's bare-use Type.
func formOfSubscriptTarget(r Resolver, target pyast.Expr) (SpecialForm, bool) {
	var v Type
	var ok bool
	switch t := target.(type) {
	case *pyast.Name:
		v, ok = r.ResolveName(t.Id)
	case *pyast.Attribute:
		base, err := EvalTypeExpression(r, t.Value)
		if err != nil {
			return 0, false
		}
		v, ok = r.ResolveAttribute(base, t.Attr)
	default:
		return 0, false
	}
	if !ok {
		return 0, false
	}
	return r.SpecialFormOf(v)
}

// SubscriptArgs evaluates a subscript's slice as a type-expression argument
// list: a tuple slice (`Dict[str, int]`) evaluates each element, anything
// else is a single-argument subscript (`list[int]`).
func SubscriptArgs(r Resolver, slice pyast.Expr) ([]Type, error) {
	if tup, ok := slice.(*pyast.TupleExpr); ok {
		args := make([]Type, len(tup.Elts))
		for i, el := range tup.Elts {
			t, err := EvalTypeExpression(r, el)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		return args, nil
	}
	t, err := EvalTypeExpression(r, slice)
	if err != nil {
		return nil, err
	}
	return []Type{t}, nil
}

func evalParameterizedForm(form SpecialForm, args []Type) (Type, error) {
	switch form {
	case FormUnion:
		return NormalizeUnion(args), nil
	case FormOptional:
		if len(args) != 1 {
			return nil, fmt.Errorf("Optional requires exactly one type argument, got %d", len(args))
		}
		return NormalizeUnion([]Type{args[0], NoneType{}}), nil
	case FormLiteral:
		return NormalizeUnion(args), nil
	case FormIntersection:
		return Intersection{Positive: args}, nil
	case FormClassVar, FormFinal, FormRequired, FormNotRequired, FormReadOnly:
		// A qualifier reached in type-expression position (e.g. inside a
		// nested subscript) strips to its inner type — annotation-position
		// handling of the qualifier bit itself is EvalAnnotationExpression's
		// job, and nesting is rejected there.
		if len(args) != 1 {
			return nil, fmt.Errorf("%s requires exactly one type argument, got %d", form, len(args))
		}
		return args[0], nil
	case FormType:
		if len(args) != 1 {
			return nil, fmt.Errorf("type[] requires exactly one type argument, got %d", len(args))
		}
		if cl, ok := args[0].(ClassLiteral); ok {
			return SubclassOf{Class: cl.Class}, nil
		}
		if inst, ok := args[0].(Instance); ok {
			return SubclassOf{Class: inst.Class}, nil
		}
		return UnknownType, nil
	case FormTuple:
		return Instance{Class: ClassType{QualName: "tuple", Known: ClassTuple}, Specialization: args}, nil
	case FormCallable:
		if len(args) != 2 {
			return nil, fmt.Errorf("Callable requires exactly two arguments ([params], return)")
		}
		var params []Parameter
		if paramList, ok := args[0].(Instance); ok && paramList.Class.QualName == "list" {
			for i, p := range paramList.Specialization {
				params = append(params, Parameter{Name: fmt.Sprintf("arg%d", i), Annotated: p})
			}
		}
		return Callable{Signature: Signature{Parameters: params, ReturnType: args[1]}}, nil
	case FormAnnotated:
		if len(args) == 0 {
			return nil, fmt.Errorf("Annotated requires at least one type argument")
		}
		return args[0], nil
	case FormNot:
		if len(args) != 1 {
			return nil, fmt.Errorf("Not requires exactly one type argument")
		}
		return Intersection{Negative: args}, nil
	default:
		return UnknownType, nil
	}
}

// EvalAnnotationExpression evaluates expr in an annotation position: the
// same grammar as EvalTypeExpression plus the outermost-only qualifiers.
// `Annotated[T, meta...]` discards metadata and recurses into T, itself
// subject to the same outermost-only rule. Nesting two qualifiers
// (`Final[ClassVar[int]]`) is a reported error: the result is Unknown with
// a non-nil error, and the qualifier bit for the invalid inner form is not
// set.
func EvalAnnotationExpression(r Resolver, expr pyast.Expr) (Type, TypeQualifiers, error) {
	sub, ok := expr.(*pyast.Subscript)
	if !ok {
		t, err := EvalTypeExpression(r, expr)
		return t, 0, err
	}
	form, isForm := formOfSubscriptTarget(r, sub.Value)
	if !isForm {
		t, err := EvalTypeExpression(r, expr)
		return t, 0, err
	}
	if form == FormAnnotated {
		// Metadata is dropped unevaluated; T keeps annotation-position rules.
		inner := sub.Slice
		if tup, ok := inner.(*pyast.TupleExpr); ok && len(tup.Elts) > 0 {
			inner = tup.Elts[0]
		}
		return EvalAnnotationExpression(r, inner)
	}
	q, isQualifier := IsQualifierForm(form)
	if !isForm || !isQualifier {
		t, err := EvalTypeExpression(r, expr)
		return t, 0, err
	}
	args, err := SubscriptArgs(r, sub.Slice)
	if err != nil {
		return UnknownType, q, err
	}
	if len(args) != 1 {
		// The qualifier bit stays attached even when the argument count is
		// wrong: a caller inspecting TypeQualifiers shouldn't lose track of
		// `Final`/`ClassVar`/... just because the inner form was malformed.
		return UnknownType, q, fmt.Errorf("%s requires exactly one type argument, got %d", form, len(args))
	}
	if innerSub, ok := sub.Slice.(*pyast.Subscript); ok {
		if innerForm, ok := formOfSubscriptTarget(r, innerSub.Value); ok {
			if _, innerIsQualifier := IsQualifierForm(innerForm); innerIsQualifier {
				return UnknownType, 0, fmt.Errorf("%s[%s[...]] nests two type qualifiers, which is not allowed", form, innerForm)
			}
		}
	}
	return args[0], q, nil
}
