package core

import (
	"time"

	"github.com/jomei/notionapi"
)

const (
	// Uncategorized labels expenses whose category property is missing or empty.
	Uncategorized = "Uncategorized"

	DefaultAmountProperty   = "Amount"
	DefaultCategoryProperty = "Category"
)

type valueKind int

const (
	kindNull valueKind = iota
	kindText
	kindNumber
)

// Value is the scalar pulled out of a Notion property: null, text or number.
type Value struct {
	kind   valueKind
	text   string
	number float64
}

// Null returns the absent value.
func Null() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: kindText, text: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: kindNumber, number: n} }

func (v Value) IsNull() bool { return v.kind == kindNull }

// AsText returns the text and whether the value holds text.
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == kindText
}

// AsNumber returns the number and whether the value holds a number.
func (v Value) AsNumber() (float64, bool) {
	return v.number, v.kind == kindNumber
}

// Interface returns nil, a string or a float64.
func (v Value) Interface() any {
	switch v.kind {
	case kindText:
		return v.text
	case kindNumber:
		return v.number
	default:
		return nil
	}
}

// ExtractPropertyValue normalizes a Notion property into a Value.
//
// Supported property types are title, rich_text, number, select and date.
// A nil property, or any other type, yields Null.
func ExtractPropertyValue(p notionapi.Property) Value {
	switch prop := p.(type) {
	case nil:
		return Null()
	case *notionapi.TitleProperty:
		if prop == nil {
			return Null()
		}
		return Text(firstPlainText(prop.Title))
	case notionapi.TitleProperty:
		return Text(firstPlainText(prop.Title))
	case *notionapi.RichTextProperty:
		if prop == nil {
			return Null()
		}
		return Text(firstPlainText(prop.RichText))
	case notionapi.RichTextProperty:
		return Text(firstPlainText(prop.RichText))
	case *notionapi.NumberProperty:
		if prop == nil {
			return Null()
		}
		return Number(prop.Number)
	case notionapi.NumberProperty:
		return Number(prop.Number)
	case *notionapi.SelectProperty:
		if prop == nil {
			return Null()
		}
		return Text(prop.Select.Name)
	case notionapi.SelectProperty:
		return Text(prop.Select.Name)
	case *notionapi.DateProperty:
		if prop == nil {
			return Null()
		}
		return Text(dateStart(prop.Date))
	case notionapi.DateProperty:
		return Text(dateStart(prop.Date))
	default:
		return Null()
	}
}

func firstPlainText(items []notionapi.RichText) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].PlainText
}

// dateStart renders a date as YYYY-MM-DD, or RFC 3339 when it carries a time.
func dateStart(d *notionapi.DateObject) string {
	if d == nil || d.Start == nil {
		return ""
	}
	t := time.Time(*d.Start)
	if t.IsZero() {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
