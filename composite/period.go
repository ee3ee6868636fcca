package composite

import "time"

// Period is one compositing interval. Scenes are taken from
// [Start, AcquisitionEnd); OutputEnd is the last day the period stands for.
type Period struct {
	Number         int
	Label          string
	Start          time.Time
	OutputEnd      time.Time
	AcquisitionEnd time.Time
}

// BiWeekly returns 2*months periods of 15 days from January 1st. Period p
// starts on day (p-1)*15+1 and ends on day min(p*15, 365); scenes are
// gathered over window days from the start.
func BiWeekly(year, months, window int) []Period {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	n := months * 2
	out := make([]Period, 0, n)
	for p := 1; p <= n; p++ {
		startDay := (p-1)*15 + 1
		endDay := min(p*15, 365)
		start := jan1.AddDate(0, 0, startDay-1)
		out = append(out, Period{
			Number:         p,
			Label:          start.Format(dateLayout),
			Start:          start,
			OutputEnd:      jan1.AddDate(0, 0, endDay-1),
			AcquisitionEnd: start.AddDate(0, 0, window),
		})
	}
	return out
}

// Monthly returns one calendar month period per month in [first, last],
// labelled YYYY-MM.
func Monthly(year, first, last int) []Period {
	var out []Period
	for m := first; m <= last; m++ {
		start := time.Date(year, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		out = append(out, Period{
			Number:         m,
			Label:          start.Format("2006-01"),
			Start:          start,
			OutputEnd:      end.AddDate(0, 0, -1),
			AcquisitionEnd: end,
		})
	}
	return out
}

// WindowDays is the length of the acquisition window in days.
func (p Period) WindowDays() int {
	return int(p.AcquisitionEnd.Sub(p.Start).Hours() / 24)
}

// Continuous splits the year into consecutive windows of days days from
// January 1st. There are floor(d/days) of them, d being the number of days
// from January 1st to December 31st, so the tail of the year that does not
// fill a window is left out. Labels read <start>_<end> with end exclusive.
func Continuous(year, days int) []Period {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	dec31 := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	n := int(dec31.Sub(jan1).Hours()/24) / days
	out := make([]Period, 0, n)
	for k := 0; k < n; k++ {
		start := jan1.AddDate(0, 0, k*days)
		end := start.AddDate(0, 0, days)
		out = append(out, Period{
			Number:         k + 1,
			Label:          start.Format(dateLayout) + "_" + end.Format(dateLayout),
			Start:          start,
			OutputEnd:      end.AddDate(0, 0, -1),
			AcquisitionEnd: end,
		})
	}
	return out
}
