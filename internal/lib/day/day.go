// Package day содержит функции для работы с календарными датами без времени.
// Все даты приводятся к полуночи UTC, чтобы сравнения и сложение дней
// не зависели от часового пояса сервера.
package day

import "time"

// Of возвращает календарную дату момента t в UTC.
func Of(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Add прибавляет n календарных дней к дате t.
func Add(t time.Time, n int) time.Time {
	return Of(t).AddDate(0, 0, n)
}

// Before сообщает, что дата a строго раньше даты b.
func Before(a, b time.Time) bool {
	return Of(a).Before(Of(b))
}

// Between возвращает количество дней от from до to (может быть отрицательным).
func Between(from, to time.Time) int {
	return int(Of(to).Sub(Of(from)).Hours() / 24)
}
