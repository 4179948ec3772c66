package progress

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-learn/core"
)

// Progress is a user's progress on one content item (lesson, quiz, capsule) of a course.
// It is only mutated through the versioned update protocol of Service.
type Progress struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	CourseID      string    `json:"course_id" db:"course_id"`
	ItemID        string    `json:"item_id" db:"item_id"`
	Version       int       `json:"version" db:"version"`
	BestScore     float64   `json:"best_score" db:"best_score"`
	Passed        bool      `json:"passed" db:"passed"`
	Completed     bool      `json:"completed" db:"completed"`
	Attempts      int       `json:"attempts" db:"attempts"`
	LastAttemptAt time.Time `json:"last_attempt_at" db:"last_attempt_at"` // UTC
	CreatedAt     time.Time `json:"created_at" db:"created_at"`           // UTC
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`           // UTC
}

func (p Progress) Identity() Identity {
	return Identity{UserID: p.UserID, CourseID: p.CourseID, ItemID: p.ItemID}
}

// Identity is the composite natural key of a Progress record.
type Identity struct {
	UserID   string `json:"user_id" validate:"required,ident,max=128"`
	CourseID string `json:"course_id" validate:"required,ident,max=128"`
	ItemID   string `json:"item_id" validate:"required,ident,max=128"`
}

func (ident *Identity) clean() {
	ident.UserID = core.CleanString(ident.UserID)
	ident.CourseID = core.CleanString(ident.CourseID)
	ident.ItemID = core.CleanString(ident.ItemID)
}

// NewProgress contains information needed to create a new Progress record.
type NewProgress struct {
	Identity
}

func (np *NewProgress) Validate(validate *validator.Validate) error {
	np.clean()
	return validate.Struct(np)
}

// Patch is a partial update of a Progress record: nil fields are left untouched.
// Attempts is an absolute count, never a delta.
type Patch struct {
	BestScore     *float64   `json:"best_score,omitempty" validate:"omitempty,min=0,max=100"`
	Passed        *bool      `json:"passed,omitempty"`
	Completed     *bool      `json:"completed,omitempty"`
	Attempts      *int       `json:"attempts,omitempty" validate:"omitempty,min=0"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`

	// set by the update protocol only
	Version   *int       `json:"-"`
	UpdatedAt *time.Time `json:"-"`
}

func (p Patch) IsEmpty() bool {
	return p.BestScore == nil && p.Passed == nil && p.Completed == nil && p.Attempts == nil && p.LastAttemptAt == nil
}

func (p *Patch) Validate(validate *validator.Validate) error {
	return validate.Struct(p)
}

// Apply returns `prog` with the set fields of the patch.
func (p Patch) Apply(prog Progress) Progress {
	if p.BestScore != nil {
		prog.BestScore = *p.BestScore
	}
	if p.Passed != nil {
		prog.Passed = *p.Passed
	}
	if p.Completed != nil {
		prog.Completed = *p.Completed
	}
	if p.Attempts != nil {
		prog.Attempts = *p.Attempts
	}
	if p.LastAttemptAt != nil {
		prog.LastAttemptAt = p.LastAttemptAt.UTC()
	}
	if p.Version != nil {
		prog.Version = *p.Version
	}
	if p.UpdatedAt != nil {
		prog.UpdatedAt = p.UpdatedAt.UTC()
	}
	return prog
}

// PatchOf returns the domain fields of `prog` as a fully set Patch.
func PatchOf(prog Progress) Patch {
	score, passed, completed, attempts, lastAt := prog.BestScore, prog.Passed, prog.Completed, prog.Attempts, prog.LastAttemptAt
	return Patch{
		BestScore:     &score,
		Passed:        &passed,
		Completed:     &completed,
		Attempts:      &attempts,
		LastAttemptAt: &lastAt,
	}
}

// Attempt is one submission (quiz try, lesson completion) for a content item.
type Attempt struct {
	CourseID  string    `json:"course_id" validate:"required,ident,max=128"`
	ItemID    string    `json:"item_id" validate:"required,ident,max=128"`
	Score     float64   `json:"score" validate:"min=0,max=100"`
	Passed    bool      `json:"passed"`
	Completed bool      `json:"completed"`
	At        time.Time `json:"at"`
}

func (att *Attempt) Validate(validate *validator.Validate) error {
	att.CourseID = core.CleanString(att.CourseID)
	att.ItemID = core.CleanString(att.ItemID)
	return validate.Struct(att)
}

// Summary aggregates a user's progress over the items of a course.
type Summary struct {
	UserID           string  `json:"user_id"`
	CourseID         string  `json:"course_id"`
	Items            int     `json:"items"` // items with a progress record
	Completed        int     `json:"completed"`
	Passed           int     `json:"passed"`
	Attempts         int     `json:"attempts"`
	AverageBestScore float64 `json:"average_best_score"`
	TotalItems       int     `json:"total_items,omitempty"`
	Percent          float64 `json:"percent"`
}

func summarize(userID, courseID string, records []Progress) Summary {
	sum := Summary{UserID: userID, CourseID: courseID, Items: len(records)}
	var scores float64
	for _, rec := range records {
		if rec.Completed {
			sum.Completed++
		}
		if rec.Passed {
			sum.Passed++
		}
		sum.Attempts += rec.Attempts
		scores += rec.BestScore
	}
	if sum.Items > 0 {
		sum.AverageBestScore = scores / float64(sum.Items)
	}
	return sum
}

// WithTotal computes the completion percentage against the number of items in the course.
func (s Summary) WithTotal(totalItems int) Summary {
	s.TotalItems = totalItems
	s.Percent = 0
	if totalItems > 0 {
		s.Percent = float64(s.Completed) * 100 / float64(totalItems)
		if s.Percent > 100 {
			s.Percent = 100
		}
	}
	return s
}

func (s Summary) IsComplete() bool {
	return s.TotalItems > 0 && s.Completed >= s.TotalItems
}
