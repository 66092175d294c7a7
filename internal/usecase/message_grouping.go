package usecase

import (
	"time"

	"bridgeit/internal/domain/entity"
)

const (
	dayKeyLayout    = "2006-01-02"
	dateLabelLayout = "January 2, 2006"
	timeLabelLayout = "3:04 PM"

	todayLabel     = "Today"
	yesterdayLabel = "Yesterday"
	unknownLabel   = "Unknown"
)

// GroupByDay interleaves a header before the first message of each calendar
// day in loc. messages must already be in display order. Calendar days are
// compared against now, also in loc.
func GroupByDay(messages []*entity.Message, now time.Time, loc *time.Location) []entity.FeedItem {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	items := make([]entity.FeedItem, 0, len(messages)+1)
	lastKey := ""
	for _, msg := range messages {
		key, header := dayHeader(msg, now, loc)
		if len(items) == 0 || key != lastKey {
			items = append(items, header)
			lastKey = key
		}

		item := entity.FeedItem{
			Kind:    entity.FeedItemMessage,
			DayKey:  key,
			Message: msg,
		}
		if msg.HasTimestamp() {
			item.TimeLabel = msg.Timestamp.In(loc).Format(timeLabelLayout)
		}
		items = append(items, item)
	}
	return items
}

// Regroup drops the headers of an already grouped feed and groups it again.
// Regroup(GroupByDay(m)) equals GroupByDay(m).
func Regroup(items []entity.FeedItem, now time.Time, loc *time.Location) []entity.FeedItem {
	messages := make([]*entity.Message, 0, len(items))
	for _, item := range items {
		if item.Kind == entity.FeedItemMessage && item.Message != nil {
			messages = append(messages, item.Message)
		}
	}
	return GroupByDay(messages, now, loc)
}

func dayHeader(msg *entity.Message, now time.Time, loc *time.Location) (string, entity.FeedItem) {
	if !msg.HasTimestamp() {
		return entity.UnknownDayKey, entity.FeedItem{
			Kind:   entity.FeedItemHeader,
			DayKey: entity.UnknownDayKey,
			Label:  unknownLabel,
		}
	}

	ts := msg.Timestamp.In(loc)
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
	key := day.Format(dayKeyLayout)
	return key, entity.FeedItem{
		Kind:   entity.FeedItemHeader,
		DayKey: key,
		Label:  DayLabel(day, now),
		Date:   &day,
	}
}

// DayLabel names the calendar day of t relative to now.
func DayLabel(t, now time.Time) string {
	y, m, d := t.Date()
	ny, nm, nd := now.Date()
	if y == ny && m == nm && d == nd {
		return todayLabel
	}
	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	if y == yy && m == ym && d == yd {
		return yesterdayLabel
	}
	return t.Format(dateLabelLayout)
}
