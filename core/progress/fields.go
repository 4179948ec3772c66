package progress

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field names a Progress field that can be updated with Service.CompareAndSwap.
type Field string

const (
	FieldBestScore Field = "best_score"
	FieldPassed    Field = "passed"
	FieldCompleted Field = "completed"
	FieldAttempts  Field = "attempts"
)

var (
	// errors
	ErrUnknownField  = errors.New("unknown progress field")
	ErrFieldMismatch = errors.New("value type does not match the field")
)

type valueKind int

const (
	kindInvalid valueKind = iota
	kindScore
	kindFlag
	kindCount
)

func (k valueKind) String() string {
	switch k {
	case kindScore:
		return "score"
	case kindFlag:
		return "flag"
	case kindCount:
		return "count"
	default:
		return "invalid"
	}
}

// Value is a typed field value; build one with Score, Flag or Count.
type Value struct {
	kind  valueKind
	score float64
	flag  bool
	count int
}

func Score(v float64) Value { return Value{kind: kindScore, score: v} }

func Flag(v bool) Value { return Value{kind: kindFlag, flag: v} }

func Count(v int) Value { return Value{kind: kindCount, count: v} }

func (v Value) Equal(other Value) bool {
	return v == other
}

func (v Value) String() string {
	switch v.kind {
	case kindScore:
		return fmt.Sprintf("%g", v.score)
	case kindFlag:
		return fmt.Sprintf("%t", v.flag)
	case kindCount:
		return fmt.Sprintf("%d", v.count)
	default:
		return "<invalid>"
	}
}

type fieldAccessor struct {
	kind valueKind
	get  func(prog Progress) Value
	set  func(patch *Patch, v Value)
}

// fields is the closed set of compare-and-swappable fields.
var fields = map[Field]fieldAccessor{
	FieldBestScore: {
		kind: kindScore,
		get:  func(prog Progress) Value { return Score(prog.BestScore) },
		set:  func(patch *Patch, v Value) { patch.BestScore = &v.score },
	},
	FieldPassed: {
		kind: kindFlag,
		get:  func(prog Progress) Value { return Flag(prog.Passed) },
		set:  func(patch *Patch, v Value) { patch.Passed = &v.flag },
	},
	FieldCompleted: {
		kind: kindFlag,
		get:  func(prog Progress) Value { return Flag(prog.Completed) },
		set:  func(patch *Patch, v Value) { patch.Completed = &v.flag },
	},
	FieldAttempts: {
		kind: kindCount,
		get:  func(prog Progress) Value { return Count(prog.Attempts) },
		set:  func(patch *Patch, v Value) { patch.Attempts = &v.count },
	},
}

func accessorFor(field Field, values ...Value) (fieldAccessor, error) {
	acc, ok := fields[field]
	if !ok {
		return fieldAccessor{}, errors.Wrapf(ErrUnknownField, "%q", field)
	}
	for _, v := range values {
		if v.kind != acc.kind {
			return fieldAccessor{}, errors.Wrapf(ErrFieldMismatch, "%s wants a %s, got a %s", field, acc.kind, v.kind)
		}
	}
	return acc, nil
}

// ParseValue converts a decoded JSON value (float64 or bool) to the Value type of `field`.
func ParseValue(field Field, raw interface{}) (Value, error) {
	acc, err := accessorFor(field)
	if err != nil {
		return Value{}, err
	}
	switch v := raw.(type) {
	case float64:
		switch acc.kind {
		case kindScore:
			return Score(v), nil
		case kindCount:
			if v == float64(int(v)) {
				return Count(int(v)), nil
			}
		}
	case bool:
		if acc.kind == kindFlag {
			return Flag(v), nil
		}
	}
	return Value{}, errors.Wrapf(ErrFieldMismatch, "%s wants a %s, got %v", field, acc.kind, raw)
}
