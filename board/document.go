package board

import (
	"slices"

	"github.com/nomis52/clubboard/clients/activityclient"
)

// Fixed texts shown by the board.
const (
	LoadingText        = "Loading activities..."
	LoadFailedText     = "Failed to load activities. Please try again later."
	NoParticipantsText = "No participants yet"
	SelectPlaceholder  = "-- Select an activity --"

	SignupFallbackText       = "An error occurred"
	SignupFailedText         = "Failed to sign up. Please try again."
	UnregisterSuccessText    = "Participant removed"
	UnregisterFailedText     = "Failed to remove participant"
	UnregisterControlTooltip = "Unregister participant"
)

// Severity classifies a status message.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Document is the rendered state of a board.
type Document struct {
	List    ActivityList   `json:"list"`
	Select  []SelectOption `json:"select"`
	Form    Form           `json:"form"`
	Message Message        `json:"message"`
}

// ActivityList is the activities region. When Notice is set it replaces
// the cards.
type ActivityList struct {
	Notice string `json:"notice,omitempty"`
	Cards  []Card `json:"cards"`
}

// Card shows one activity.
type Card struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schedule    string `json:"schedule"`
	SpotsLeft   int    `json:"spots_left"`
	Rows        []Row  `json:"rows"`
}

// Row is one entry of a card's participant list. A placeholder row carries
// only Text; a participant row also carries the activity and email the
// unregister control sends back when it is used.
type Row struct {
	Text        string `json:"text"`
	Placeholder bool   `json:"placeholder,omitempty"`
	Activity    string `json:"activity,omitempty"`
	Email       string `json:"email,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// SelectOption is an entry of the activity selector.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Form holds the values of the signup form.
type Form struct {
	Email    string `json:"email"`
	Activity string `json:"activity"`
}

// Message is the status message region.
type Message struct {
	Text     string   `json:"text"`
	Severity Severity `json:"severity,omitempty"`
	Hidden   bool     `json:"hidden"`
}

// Class returns the CSS class list of the message element.
func (m Message) Class() string {
	switch {
	case m.Severity == "":
		return "hidden"
	case m.Hidden:
		return string(m.Severity) + " hidden"
	default:
		return string(m.Severity)
	}
}

// NewDocument returns the document shown before the first render.
func NewDocument() Document {
	return Document{
		List:    ActivityList{Notice: LoadingText},
		Select:  []SelectOption{placeholderOption()},
		Message: Message{Hidden: true},
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	out.Select = slices.Clone(d.Select)
	out.List.Cards = make([]Card, len(d.List.Cards))
	for i, c := range d.List.Cards {
		c.Rows = slices.Clone(c.Rows)
		out.List.Cards[i] = c
	}
	return out
}

// Card returns the card of the named activity.
func (d Document) Card(name string) (Card, bool) {
	for _, c := range d.List.Cards {
		if c.Name == name {
			return c, true
		}
	}
	return Card{}, false
}

// Participants returns the emails listed on the card, without placeholders.
func (c Card) Participants() []string {
	emails := make([]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		if !r.Placeholder {
			emails = append(emails, r.Email)
		}
	}
	return emails
}

func placeholderOption() SelectOption {
	return SelectOption{Value: "", Label: SelectPlaceholder}
}

// buildCards renders roster into cards sorted by activity name. busy reports
// whether the unregister control of a row is in flight.
func buildCards(roster activityclient.Roster, busy func(controlKey) bool) []Card {
	names := roster.Names()
	cards := make([]Card, 0, len(names))
	for _, name := range names {
		a := roster[name]
		card := Card{
			Name:        name,
			Description: a.Description,
			Schedule:    a.Schedule,
			SpotsLeft:   a.SpotsLeft(),
		}
		if len(a.Participants) == 0 {
			card.Rows = []Row{{Text: NoParticipantsText, Placeholder: true}}
		} else {
			card.Rows = make([]Row, 0, len(a.Participants))
			for _, email := range a.Participants {
				card.Rows = append(card.Rows, Row{
					Text:     email,
					Activity: name,
					Email:    email,
					Disabled: busy(controlKey{activity: name, email: email}),
				})
			}
		}
		cards = append(cards, card)
	}
	return cards
}

func buildSelect(roster activityclient.Roster) []SelectOption {
	names := roster.Names()
	opts := make([]SelectOption, 0, len(names)+1)
	opts = append(opts, placeholderOption())
	for _, name := range names {
		opts = append(opts, SelectOption{Value: name, Label: name})
	}
	return opts
}
