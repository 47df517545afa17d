package types

// TypeQualifiers is the bit set attached to an annotated declaration
// alongside its plain Type: ClassVar[T]/Final[T]/Required[T]/
// NotRequired[T]/ReadOnly[T] strip to the inner type T plus one bit each,
// rather than nesting as part of the Type tree itself. QualifierInitVar
// exists but EvalAnnotationExpression never sets it: InitVar[T] is not
// recognized as a qualifier.
type TypeQualifiers uint8

const (
	QualifierClassVar TypeQualifiers = 1 << iota
	QualifierFinal
	QualifierInitVar
	QualifierRequired
	QualifierNotRequired
	QualifierReadOnly
)

// Has reports whether q is set.
func (t TypeQualifiers) Has(q TypeQualifiers) bool { return t&q != 0 }

// With returns t with q set.
func (t TypeQualifiers) With(q TypeQualifiers) TypeQualifiers { return t | q }

// qualifierForm maps the SpecialForm a qualifier annotation is spelled
// with to its TypeQualifiers bit, for EvalAnnotationExpression.
var qualifierForm = map[SpecialForm]TypeQualifiers{
	FormClassVar:    QualifierClassVar,
	FormFinal:       QualifierFinal,
	FormRequired:    QualifierRequired,
	FormNotRequired: QualifierNotRequired,
	FormReadOnly:    QualifierReadOnly,
}

// IsQualifierForm reports whether a SpecialForm is one of the annotation
// qualifiers (as opposed to a plain type-expression special form).
func IsQualifierForm(f SpecialForm) (TypeQualifiers, bool) {
	q, ok := qualifierForm[f]
	return q, ok
}

// initVarQualifiedName is the qualified name `dataclasses.InitVar[T]` is
// spelled with (it is not a typing special form). Nothing consults it:
// EvalAnnotationExpression recognizes qualifiers only through qualifierForm.
const initVarQualifiedName = "dataclasses.InitVar"
