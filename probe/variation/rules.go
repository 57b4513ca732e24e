package variation

import (
	"math"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/songquanpeng/contract-tester/probe/model"
)

// Sources are the fakers handed to a rule. Fixed is seeded per field and must be
// used for every entry that is not an explicitly random pick.
type Sources struct {
	Fixed  *gofakeit.Faker
	Random *gofakeit.Faker
}

// Rule pairs a field predicate with the generator of its values.
type Rule struct {
	Name     string
	Match    func(f model.FieldSpec) bool
	Generate func(src Sources, f model.FieldSpec) []Value
}

func textual(f model.FieldSpec) bool {
	return f.Type.Accepts(model.KindString)
}

func textualNamed(sub string) func(model.FieldSpec) bool {
	return func(f model.FieldSpec) bool {
		return textual(f) && f.NameContains(sub)
	}
}

func primary(k model.Kind) func(model.FieldSpec) bool {
	return func(f model.FieldSpec) bool {
		return f.Type.Primary() == k
	}
}

// DefaultRules is the priority-ordered rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "email", Match: textualNamed("email"), Generate: emailValues},
		{Name: "name", Match: textualNamed("name"), Generate: nameValues},
		{Name: "password", Match: textualNamed("password"), Generate: passwordValues},
		{Name: "phone", Match: textualNamed("phone"), Generate: phoneValues},
		{Name: "integer", Match: primary(model.KindInteger), Generate: integerValues},
		{Name: "number", Match: primary(model.KindNumber), Generate: numberValues},
		{Name: "boolean", Match: primary(model.KindBoolean), Generate: booleanValues},
	}
}

func valid(v any) Value    { return Value{Value: v, Class: ClassValid} }
func boundary(v any) Value { return Value{Value: v, Class: ClassBoundary} }
func invalid(v any) Value  { return Value{Value: v, Class: ClassInvalid} }

func emailValues(src Sources, _ model.FieldSpec) []Value {
	fk := src.Fixed
	return []Value{
		valid(fk.Email()),
		valid(localPart(fk.Username()) + "@" + fk.DomainName()),
		valid(localPart(fk.FirstName()) + "." + localPart(fk.LastName()) + "@gmail.com"),
		valid("qa+" + localPart(fk.LastName()) + "@" + fk.DomainName()),
		invalid("invalid.email"),
		invalid("test@.com"),
		invalid("@domain.com"),
		invalid(" @domain.com"),
		invalid("user@domain.c"),
	}
}

// localPart lower-cases s and drops everything but ASCII letters and digits.
func localPart(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return -1
	}, s)
	if s == "" {
		return "user"
	}
	return s
}

func nameValues(src Sources, _ model.FieldSpec) []Value {
	fk := src.Fixed
	return []Value{
		valid(fk.FirstName()),
		valid(fk.LastName()),
		valid(fk.Name()),
		boundary("A"),
		boundary(strings.Repeat("x", 50)),
		invalid("123"),
		invalid("$pecial Ch@racters"),
		invalid(""),
	}
}

func passwordValues(src Sources, _ model.FieldSpec) []Value {
	return []Value{
		valid(strongPassword(src.Random, 12)),
		valid("P@ssw0rd123!"),
		valid("Str0ng!P@ssw0rd"),
		invalid("weak"),
		invalid("12345678"),
		invalid("password"),
		invalid(""),
	}
}

// strongPassword returns an n character password holding at least one lower
// case letter, upper case letter, digit and symbol.
func strongPassword(f *gofakeit.Faker, n int) string {
	chars := []rune(f.Password(true, true, true, true, false, max(n-4, 0)))
	for _, class := range [][4]bool{
		{true, false, false, false},
		{false, true, false, false},
		{false, false, true, false},
		{false, false, false, true},
	} {
		chars = append(chars, []rune(f.Password(class[0], class[1], class[2], class[3], false, 1))...)
	}
	for i := len(chars) - 1; i > 0; i-- {
		j := f.IntN(i + 1)
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars)
}

func phoneValues(src Sources, _ model.FieldSpec) []Value {
	fk := src.Fixed
	return []Value{
		valid(fk.Phone()),
		valid(fk.PhoneFormatted()),
		valid("+1234567890"),
		invalid("123"),
		invalid("abcdefghij"),
		invalid(""),
	}
}

func integerValues(src Sources, _ model.FieldSpec) []Value {
	return []Value{
		valid(int64(src.Random.IntRange(1, 100))),
		boundary(int64(0)),
		boundary(int64(-1)),
		boundary(int64(999999)),
		invalid("not_a_number"),
		invalid(""),
	}
}

func numberValues(src Sources, _ model.FieldSpec) []Value {
	typical := math.Round(src.Random.Float64Range(1, 100)*100) / 100
	return []Value{
		valid(typical),
		boundary(0.0),
		boundary(-1.5),
		boundary(1e9),
		invalid("not_a_number"),
		invalid(""),
	}
}

func booleanValues(Sources, model.FieldSpec) []Value {
	return []Value{
		valid(true),
		valid(false),
		invalid(nil),
		invalid("true"),
		invalid("false"),
		invalid(int64(0)),
		invalid(int64(1)),
	}
}
