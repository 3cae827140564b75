package export

import (
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/teemow/plannr/internal/events"
)

// ProductID identifies plannr as the producer of exported calendars.
const ProductID = "-//teemow//plannr//EN"

// uidNamespace scopes the name-based UIDs of exported VEVENTs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("plannr.teemow.github.com"))

// EncodeICS renders list as an iCalendar document with one all-day VEVENT
// per event, in input order.
func EncodeICS(list []events.Event) ([]byte, error) {
	if len(list) == 0 {
		return nil, ErrNoEvents
	}

	cal := ical.NewCalendarFor("plannr")
	cal.SetProductId(ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	for i, ev := range list {
		vevent := cal.AddEvent(eventUID(i, ev))
		// DTSTAMP is required by RFC 5545; tie it to the event date so the
		// document stays byte-stable across runs.
		vevent.SetDtStampTime(ev.Date)
		vevent.SetAllDayStartAt(ev.Date)
		vevent.SetAllDayEndAt(ev.Date.AddDate(0, 0, 1))
		vevent.SetSummary(textValue(ev.Title))
		vevent.SetDescription(textValue(ev.Description))
		vevent.AddProperty(ical.ComponentPropertyCategories, string(ev.Kind))
	}

	return []byte(cal.Serialize()), nil
}

// eventUID derives a stable identifier from the event's position and content.
func eventUID(index int, ev events.Event) string {
	name := fmt.Sprintf("%d|%s|%s|%s", index, ev.DateString(), ev.Kind, ev.Title)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@plannr"
}

// lineBreaks folds CRLF and lone CR into LF; the encoder only escapes LF.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func textValue(s string) string {
	return lineBreaks.Replace(s)
}
