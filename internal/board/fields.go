package board

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/conorfennell/studyboard/internal/domain"
	"github.com/conorfennell/studyboard/internal/grade"
)

// Field names an editable card field. The values match the card's JSON
// keys.
type Field string

const (
	FieldTitle            Field = "title"
	FieldSubTitle         Field = "sub_title"
	FieldDescription      Field = "description"
	FieldDifficulty       Field = "difficulty"
	FieldPriority         Field = "priority"
	FieldLearningStrategy Field = "learning_strategy"
	FieldChecklists       Field = "checklists"
	FieldRating           Field = "rating"
	FieldNotes            Field = "notes"
	FieldPreTestGrade     Field = "pre_test_grade"
	FieldPostTestGrade    Field = "post_test_grade"
)

// Fields lists every editable field.
var Fields = []Field{
	FieldTitle, FieldSubTitle, FieldDescription, FieldDifficulty,
	FieldPriority, FieldLearningStrategy, FieldChecklists, FieldRating,
	FieldNotes, FieldPreTestGrade, FieldPostTestGrade,
}

// ParseValue converts command-line text into the value type UpdateCardField
// expects for f. An empty rating or checklist clears the field.
func ParseValue(f Field, raw string) (any, error) {
	switch f {
	case FieldRating:
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: rating %q is not a number", ErrInvalidValue, raw)
		}
		return v, nil
	case FieldChecklists:
		if raw == "" {
			return nil, nil
		}
		return json.RawMessage(raw), nil
	case FieldDifficulty:
		return domain.Difficulty(raw), nil
	}
	if _, err := f.setter(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// setter validates value for f and returns the mutation that stores it.
func (f Field) setter(value any) (func(*domain.Card), error) {
	switch f {
	case FieldTitle, FieldSubTitle, FieldDescription, FieldPriority, FieldLearningStrategy, FieldNotes:
		s, err := stringValue(f, value)
		if err != nil {
			return nil, err
		}
		return func(c *domain.Card) { *f.stringRef(c) = s }, nil

	case FieldPreTestGrade, FieldPostTestGrade:
		s, err := stringValue(f, value)
		if err != nil {
			return nil, err
		}
		s = grade.Normalize(s)
		if s != "" && !grade.IsNumber(s) {
			return nil, fmt.Errorf("%w: %s %q is not a number", ErrInvalidValue, f, s)
		}
		return func(c *domain.Card) { *f.stringRef(c) = s }, nil

	case FieldDifficulty:
		var d domain.Difficulty
		switch v := value.(type) {
		case domain.Difficulty:
			d = v
		case string:
			d = domain.Difficulty(v)
		default:
			return nil, typeError(f, value)
		}
		if err := validate.Var(d, "oneof=easy medium hard expert"); err != nil {
			return nil, fmt.Errorf("%w: difficulty %q", ErrInvalidValue, d)
		}
		return func(c *domain.Card) { c.Difficulty = d }, nil

	case FieldRating:
		var r *float64
		switch v := value.(type) {
		case nil:
		case float64:
			r = &v
		case int:
			fv := float64(v)
			r = &fv
		case *float64:
			if v != nil {
				fv := *v
				r = &fv
			}
		default:
			return nil, typeError(f, value)
		}
		return func(c *domain.Card) { c.Rating = r }, nil

	case FieldChecklists:
		var raw json.RawMessage
		switch v := value.(type) {
		case nil:
		case json.RawMessage:
			raw = v
		case []byte:
			raw = v
		case string:
			raw = json.RawMessage(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("%w: checklists: %v", ErrInvalidValue, err)
			}
			raw = b
		}
		if raw != nil && !json.Valid(raw) {
			return nil, fmt.Errorf("%w: checklists is not valid JSON", ErrInvalidValue)
		}
		raw = append(json.RawMessage(nil), raw...)
		return func(c *domain.Card) { c.Checklists = raw }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, string(f))
}

func (f Field) stringRef(c *domain.Card) *string {
	switch f {
	case FieldTitle:
		return &c.Title
	case FieldSubTitle:
		return &c.SubTitle
	case FieldDescription:
		return &c.Description
	case FieldPriority:
		return &c.Priority
	case FieldLearningStrategy:
		return &c.LearningStrategy
	case FieldNotes:
		return &c.Notes
	case FieldPreTestGrade:
		return &c.PreTestGrade
	case FieldPostTestGrade:
		return &c.PostTestGrade
	}
	panic("board: no string field " + string(f))
}

func stringValue(f Field, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", typeError(f, value)
	}
	return s, nil
}

func typeError(f Field, value any) error {
	return fmt.Errorf("%w: %s does not accept %T", ErrInvalidValue, f, value)
}
