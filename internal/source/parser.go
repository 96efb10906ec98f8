package source

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

const slotsPerDay = 6

var (
	lessonTimeRe = regexp.MustCompile(`\d+\.\d+-\d+\.\d+`)
	stampRe      = regexp.MustCompile(`Обновлено: (\d{2})\.(\d{2})\.(\d{4}) в (\d{2}):(\d{2})`)
	groupHrefRe  = regexp.MustCompile(`^cg(\d+)\.htm$`)
)

// Parser turns decoded schedule pages into domain values.
type Parser struct {
	teachers *Teachers
}

// NewParser creates a parser that expands teacher names with teachers.
func NewParser(teachers *Teachers) *Parser {
	return &Parser{teachers: teachers}
}

// Schedule extracts the lessons of date from a group page. The row whose
// centered cell holds the date is slot 1; the following sibling rows are
// slots 2..6. A page without that date yields an empty schedule.
func (p *Parser) Schedule(page []byte, date time.Time) domain.Schedule {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return domain.NewSchedule(date, nil)
	}

	target := domain.FormatDate(date)
	dateRow := doc.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		cell := row.Find(`td[align="center"]`).First()
		return strings.Contains(strings.TrimSpace(cell.Text()), target)
	}).First()
	if dateRow.Length() == 0 {
		return domain.NewSchedule(date, nil)
	}

	var lessons []domain.Lesson
	row := dateRow
	for number := 1; number <= slotsPerDay && row.Length() > 0; number++ {
		if l, ok := p.lesson(row, number); ok {
			lessons = append(lessons, l)
		}
		row = row.NextFiltered("tr")
	}
	return domain.NewSchedule(date, lessons)
}

// lesson reads one slot. Rows without a "Пара:" time cell or without a
// subject are free slots.
func (p *Parser) lesson(row *goquery.Selection, number int) (domain.Lesson, bool) {
	timeCell := row.Find("td.hd").FilterFunction(func(_ int, td *goquery.Selection) bool {
		return strings.Contains(td.Text(), "Пара:")
	})
	lessonCell := row.Find("td.ur")
	if timeCell.Length() == 0 || lessonCell.Length() == 0 {
		return domain.Lesson{}, false
	}

	lessonTime := lessonTimeRe.FindString(strings.TrimSpace(timeCell.Text()))
	if lessonTime == "" {
		return domain.Lesson{}, false
	}
	subject := strings.TrimSpace(lessonCell.Find(".z1").Text())
	if subject == "" {
		return domain.Lesson{}, false
	}

	return domain.Lesson{
		Number:  number,
		Time:    lessonTime,
		Subject: subject,
		Teacher: p.teachers.FullName(strings.TrimSpace(lessonCell.Find(".z3").Text())),
		Room:    strings.TrimSpace(lessonCell.Find(".z2").Text()),
	}, true
}

// Stamp returns the "Обновлено: dd.mm.yyyy в hh:mm" text of the index page.
func (p *Parser) Stamp(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", ErrStampNotFound
	}
	m := stampRe.FindString(doc.Find(".ref").Text())
	if m == "" {
		return "", ErrStampNotFound
	}
	return m, nil
}

// Groups maps group codes to group ids using the cg<id>.htm links of the
// index page.
func (p *Parser) Groups(page []byte) map[string]string {
	groups := make(map[string]string)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return groups
	}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := groupHrefRe.FindStringSubmatch(strings.TrimSpace(href))
		if len(m) != 2 {
			return
		}
		code, err := domain.NormalizeGroupCode(a.Text())
		if err != nil {
			return
		}
		groups[code] = m[1]
	})
	return groups
}
