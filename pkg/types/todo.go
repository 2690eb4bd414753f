package types

// Todo is one task record as seen by the view and the session cache.
// ID is assigned by the store on create and never changes afterwards.
type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Document is the stored shape of a task record. The store keeps the ID
// outside the document body.
type Document struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Text == nil && p.Completed == nil
}

// TextPatch returns a Patch that replaces only the text.
func TextPatch(text string) Patch {
	return Patch{Text: &text}
}

// CompletedPatch returns a Patch that replaces only the completion flag.
func CompletedPatch(completed bool) Patch {
	return Patch{Completed: &completed}
}

// Apply returns the document with the patch fields written over it.
func (p Patch) Apply(doc Document) Document {
	if p.Text != nil {
		doc.Text = *p.Text
	}
	if p.Completed != nil {
		doc.Completed = *p.Completed
	}
	return doc
}
