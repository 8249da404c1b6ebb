package models

import "time"

// Changes maps column names to new values for a partial update.
// Only fields that were explicitly set appear in the map.
type Changes map[string]any

// Has reports whether column is part of the change set
func (c Changes) Has(column string) bool {
	_, ok := c[column]
	return ok
}

// BookInput carries the optional fields of a book create or edit.
// A nil field is left untouched.
type BookInput struct {
	Title       *string     `json:"title,omitempty"`
	Author      *string     `json:"author,omitempty"`
	Translator  *string     `json:"translator,omitempty"`
	Publisher   *string     `json:"publisher,omitempty"`
	Genre       *string     `json:"genre,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *BookStatus `json:"status,omitempty"`
	TotalPages  *int        `json:"total_pages,omitempty"`
	ReadPages   *int        `json:"read_pages,omitempty"`
	StartedDate *time.Time  `json:"started_date,omitempty"`
}

// Changes serializes the set fields into column values
func (in BookInput) Changes() Changes {
	c := Changes{}
	setString(c, "title", in.Title)
	setString(c, "author", in.Author)
	setString(c, "translator", in.Translator)
	setString(c, "publisher", in.Publisher)
	setString(c, "genre", in.Genre)
	setString(c, "description", in.Description)
	if in.Status != nil {
		c["status"] = string(*in.Status)
	}
	setInt(c, "total_pages", in.TotalPages)
	setInt(c, "read_pages", in.ReadPages)
	if in.StartedDate != nil {
		c["started_date"] = in.StartedDate.UTC()
	}
	return c
}

// ApplyTo copies the set fields onto b
func (in BookInput) ApplyTo(b *Book) {
	applyString(&b.Title, in.Title)
	applyString(&b.Author, in.Author)
	applyString(&b.Translator, in.Translator)
	applyString(&b.Publisher, in.Publisher)
	applyString(&b.Genre, in.Genre)
	applyString(&b.Description, in.Description)
	if in.Status != nil {
		b.Status = *in.Status
	}
	applyInt(&b.TotalPages, in.TotalPages)
	applyInt(&b.ReadPages, in.ReadPages)
	if in.StartedDate != nil {
		t := in.StartedDate.UTC()
		b.StartedDate = &t
	}
}

// GoalInput carries the optional fields of a goal create or edit
type GoalInput struct {
	Title       *string    `json:"title,omitempty"`
	Type        *GoalType  `json:"type,omitempty"`
	Period      *Period    `json:"period,omitempty"`
	TargetValue *int       `json:"target_value,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

// Changes serializes the set fields into column values
func (in GoalInput) Changes() Changes {
	c := Changes{}
	setString(c, "title", in.Title)
	if in.Type != nil {
		c["type"] = string(*in.Type)
	}
	if in.Period != nil {
		c["period"] = string(*in.Period)
	}
	setInt(c, "target_value", in.TargetValue)
	if in.StartDate != nil {
		c["start_date"] = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		c["end_date"] = in.EndDate.UTC()
	}
	if in.IsActive != nil {
		c["is_active"] = *in.IsActive
	}
	return c
}

// ApplyTo copies the set fields onto g
func (in GoalInput) ApplyTo(g *Goal) {
	applyString(&g.Title, in.Title)
	if in.Type != nil {
		g.Type = *in.Type
	}
	if in.Period != nil {
		g.Period = *in.Period
	}
	applyInt(&g.TargetValue, in.TargetValue)
	if in.StartDate != nil {
		g.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		g.EndDate = in.EndDate.UTC()
	}
	if in.IsActive != nil {
		g.IsActive = *in.IsActive
	}
}

// QuoteInput carries the optional fields of a quote create or edit
type QuoteInput struct {
	Text *string `json:"quote,omitempty"`
	Page *int    `json:"page,omitempty"`
}

// Changes serializes the set fields into column values
func (in QuoteInput) Changes() Changes {
	c := Changes{}
	setString(c, "quote", in.Text)
	setInt(c, "page", in.Page)
	return c
}

// NoteInput carries the optional fields of a note create or edit
type NoteInput struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Changes serializes the set fields into column values
func (in NoteInput) Changes() Changes {
	c := Changes{}
	setString(c, "title", in.Title)
	setString(c, "content", in.Content)
	return c
}

func setString(c Changes, column string, v *string) {
	if v != nil {
		c[column] = *v
	}
}

func setInt(c Changes, column string, v *int) {
	if v != nil {
		c[column] = *v
	}
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func applyInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// String returns a pointer to s, for building inputs
func String(s string) *string { return &s }

// Int returns a pointer to n, for building inputs
func Int(n int) *int { return &n }

// Bool returns a pointer to b, for building inputs
func Bool(b bool) *bool { return &b }
