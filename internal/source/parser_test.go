package source

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const groupPage = `<html><body><table>
<tr><td align="center" rowspan="6">02.09.2024<br>Пн</td><td class="hd">Пара: 1<br> 8.30-10.00</td><td class="ur"><a class="z1">Математика</a> <a class="z2">101</a> <a class="z3">Алексеева Ю.В.</a></td></tr>
<tr><td class="hd">Пара: 2<br> 10.10-11.40</td><td class="nul">&nbsp;</td></tr>
<tr><td class="hd">Пара: 3<br> 12.10-13.40</td><td class="ur"><a class="z1">Физика</a> <a class="z2">202</a> <a class="z3">Неизвестный А.А.</a></td></tr>
<tr><td class="hd">Пара: 4<br> 13.50-15.20</td><td class="ur"><a class="z1"> </a></td></tr>
<tr><td class="hd">Пара: 5<br> 15.30-17.00</td><td class="ur"><a class="z1">История</a> <a class="z2">303</a></td></tr>
<tr><td class="hd">Пара: 6<br> 17.10-18.40</td></tr>
<tr><td align="center" rowspan="6">03.09.2024<br>Вт</td><td class="hd">Пара: 1<br> 8.30-10.00</td><td class="ur"><a class="z1">Химия</a> <a class="z2">104</a> <a class="z3">Алтухова М.В.</a></td></tr>
</table></body></html>`

const indexPageHTML = `<html><body>
<div class="ref">Обновлено: 01.09.2024 в 10:00</div>
<a href="cg42.htm">1521-2</a>
<a href="cg43.htm"> 1521-ит </a>
<a href="cg44.htm">Расписание</a>
<a href="other.htm">1999-1</a>
</body></html>`

func day(t *testing.T, y int, m time.Month, d int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func TestParser_Schedule(t *testing.T) {
	p := NewParser(NewTeachers())

	s := p.Schedule([]byte(groupPage), day(t, 2024, time.September, 2))

	require.Equal(t, "02.09.2024", s.Date)
	require.Equal(t, "понедельник", s.DayOfWeek)
	require.Len(t, s.Lessons, 3)

	first := s.Lessons[0]
	require.Equal(t, 1, first.Number)
	require.Equal(t, "8.30-10.00", first.Time)
	require.Equal(t, "Математика", first.Subject)
	require.Equal(t, "101", first.Room)
	require.Equal(t, "Алексеева Юлия Владимировна", first.Teacher)

	require.Equal(t, 3, s.Lessons[1].Number)
	require.Equal(t, "Неизвестный А.А.", s.Lessons[1].Teacher, "unknown names pass through")

	require.Equal(t, 5, s.Lessons[2].Number)
	require.Equal(t, "История", s.Lessons[2].Subject)
	require.Empty(t, s.Lessons[2].Teacher)

	for _, l := range s.Lessons {
		require.NotEqual(t, "Химия", l.Subject, "next day's rows must not leak in")
	}
}

func TestParser_ScheduleNextDay(t *testing.T) {
	p := NewParser(NewTeachers())

	s := p.Schedule([]byte(groupPage), day(t, 2024, time.September, 3))

	require.Len(t, s.Lessons, 1)
	require.Equal(t, "Химия", s.Lessons[0].Subject)
	require.Equal(t, "Алтухова Марина Викторовна", s.Lessons[0].Teacher)
}

func TestParser_MissingDateIsEmpty(t *testing.T) {
	p := NewParser(NewTeachers())

	s := p.Schedule([]byte(groupPage), day(t, 2024, time.September, 10))
	require.True(t, s.Empty())
	require.Equal(t, "10.09.2024", s.Date)

	s = p.Schedule([]byte("<<not html at all"), day(t, 2024, time.September, 2))
	require.True(t, s.Empty())
}

func TestParser_Stamp(t *testing.T) {
	p := NewParser(nil)

	stamp, err := p.Stamp([]byte(indexPageHTML))
	require.NoError(t, err)
	require.Equal(t, "Обновлено: 01.09.2024 в 10:00", stamp)

	_, err = p.Stamp([]byte(`<div class="ref">Обновлено: скоро</div>`))
	require.True(t, errors.Is(err, ErrStampNotFound))
}

func TestParser_Groups(t *testing.T) {
	p := NewParser(nil)

	groups := p.Groups([]byte(indexPageHTML))

	require.Equal(t, map[string]string{"1521-2": "42", "1521-ИТ": "43"}, groups)
}

func TestTeachers_FullName(t *testing.T) {
	tt := NewTeachers()
	require.Greater(t, tt.Len(), 100)

	require.Equal(t, "Алексеева Юлия Владимировна", tt.FullName("  алексеева   ю.в. "))
	require.Equal(t, "Кто-то К.К.", tt.FullName("Кто-то К.К."))

	var none *Teachers
	require.Equal(t, "X Y.Z.", none.FullName("X Y.Z."))
}
