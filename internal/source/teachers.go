package source

import "strings"

// teacherNames maps short names as printed on the schedule page to full names.
var teacherNames = [][2]string{
	{"Александрова В.А.", "Александрова Вера Александровна"},
	{"Алексеева Ю.В.", "Алексеева Юлия Владимировна"},
	{"Алтухова М.В.", "Алтухова Марина Викторовна"},
	{"Анохина Н.М.", "Анохина Наталья Михайловна"},
	{"Анциферова П.", "Анциферова Полина"},
	{"Ахмедова М.М.", "Ахмедова Марина Михайловна"},
	{"Бакланова Р.А.", "Бакланова Раиса Абдуловна"},
	{"Баринова Е.В.", "Баринова Елена Васильевна"},
	{"Батина Е.М.", "Батина Екатерина Михайловна"},
	{"Белых С.Г.", "Белых Станислав Геннадьевич"},
	{"Богданов С.Г.", "Богданов Сергей Григорьевич"},
	{"Богрова Т.А.", "Богрова Татьяна Александровна"},
	{"Бондарь А.Ю.", "Бондарь Алексей Юрьевич"},
	{"Борзенко А.В.", "Борзенко Артем Викторович"},
	{"Будник О.В.", "Будник Оксана Валерьевна"},
	{"Бушов Д.Г.", "Бушов Денис Геннадьевич"},
	{"Васильева О.Ф.", "Васильева Ольга Федоровна"},
	{"Веселова А.И.", "Веселова Алена Игоревна"},
	{"Викторов И.Д.", "Викторов Иван Дмитриевич"},
	{"Виноградов П.П.", "Виноградов Павел Петрович"},
	{"Виноградова О.В.", "Виноградова Оксана Владимировна"},
	{"Волчок М.В.", "Волчок Мария Васильевна"},
	{"Воронцов В.В.", "Воронцов Вадим Валерьевич"},
	{"Гаврилова Н.А.", "Гаврилова Надежда Алексеевна"},
	{"Ганьшина И.Н.", "Ганьшина Ирина Николаевна"},
	{"Глотова М.Ю.", "Глотова Марина Юрьевна"},
	{"Говорова К.О.", "Говорова Кристина Олеговна"},
	{"Головкин В.В.", "Головкин Вадим Викторович"},
	{"Головкина Н.С.", "Головкина Наталия Сергеевна"},
	{"Голощапов А.С.", "Голощапов Алексей Семенович"},
	{"Голубева И.А.", "Голубева Ирина Александровна"},
	{"Гончарова И.Д.", "Гончарова Ирина Дмитриевна"},
	{"Грибкова М.Ю.", "Грибкова Мария Юрьевна"},
	{"Гусева Е.Н.", "Гусева Екатерина Николаевна"},
	{"Гуськов С.С.", "Гуськов Сергей Сергеевич"},
	{"Додунов Д.В.", "Додунов Дмитрий Васильевич"},
	{"Докучаева К.С.", "Докучаева Ксения Сергеевна"},
	{"Дорожкин Д.М.", "Дорожкин Дмитрий Михайлович"},
	{"Доценко А.В.", "Доценко Анастасия Викторовна"},
	{"Дурова Т.В.", "Дурова Татьяна Владимировна"},
	{"Живодерова В.В.", "Живодерова Валентина Викторовна"},
	{"Жмутина А.И.", "Жмутина Алина Ивановна"},
	{"Зубова А.С.", "Зубова Александра Сергеевна"},
	{"Зубова О.О.", "Зубова Оксана Олеговна"},
	{"Казачук Е.В.", "Казачук Елена Валентиновна"},
	{"Кардава Е.Ю.", "Кардава Евгения Юрьева"},
	{"Карпенкова О.В.", "Карпенкова Ольга Владимировна"},
	{"Карпов Д.А.", "Карпов Дмитрий Андреевич"},
	{"Кирсанова А.Н.", "Кирсанова Анастасия Николаевна"},
	{"Ковалёва Л.Л.", "Ковалёва Лилия Леонидовна"},
	{"Ковтун С.П.", "Ковтун Светлана Павловна"},
	{"Кокуркина А.Л.", "Кокуркина Анастасия Леонидовна"},
	{"Колчанова Л.В.", "Колчанова Любовь Владимировна"},
	{"Комиссаров А.В.", "Комиссаров Александр Васильевич"},
	{"Костюк Е.В.", "Костюк Екатерина Викторовна"},
	{"Орлова А.В.", "Орлова (Котова) Анастасия Викторовна"},
	{"Кудрявцева Е.А.", "Кудрявцева Екатерина Александровна"},
	{"Кузнецов А.А.", "Кузнецов Алексей Анатольевич"},
	{"Курбанова Т.С.", "Курбанова Татьяна Сергеевна"},
	{"Курбатова О.Б.", "Курбатова Оксана Борисовна"},
	{"Курганова И.В.", "Курганова Ирина Викторовна"},
	{"Куршина Т.В.", "Куршина Татьяна Васильевна"},
	{"Лисовская Н.Д.", "Лисовская Наталия Дмитриевна"},
	{"Лямин М.С.", "Лямин Максим Сергеевич"},
	{"Малахова А.А.", "Малахова Анастасия Андреевна"},
	{"Малашкина В.Г.", "Малашкина Валерия Геннадьевна"},
	{"Малинина М.В.", "Малинина Мария Владимировна"},
	{"Маркосова С.В.", "Маркосова Светлана Владимировна"},
	{"Машарская Н.А.", "Машарская Наталья Александровна"},
	{"Милицкова И.А.", "Милицкова Ирина Алексеевна"},
	{"Миронова Т.Е.", "Миронова Татьяна Евгеньевна"},
	{"Митрошин П.А.", "Митрошин Павел Алексеевич"},
	{"Мищенков Н.А.", "Мищенков Николай Афанасьевич"},
	{"Молодкина Л.А.", "Молодкина Людмила Александровна"},
	{"Морозова К.А.", "Морозова Кира Андреевна"},
	{"Мурыгин Д.О.", "Мурыгин Дмитрий Олегович"},
	{"Наумов О.В.", "Наумов Олег Владимирович"},
	{"Оболенский Е.С.", "Оболенский Евгений Сергеевич"},
	{"Оборотова Т.А.", "Оборотова Татьяна Алексеевна"},
	{"Овсянникова Н.А.", "Овсянникова Надежда Александровна"},
	{"Орлов Д.Н.", "Орлов Дмитрий Николаевич"},
	{"Павлов А.Б.", "Павлов Андрей Борисович"},
	{"Пепеляева З.С.", "Пепеляева Зоя Сергеевна"},
	{"Першукова О.В.", "Першукова Ольга Васильевна"},
	{"Первушкина Д.А.", "Первушкина Дарья Андреевна"},
	{"Пикулин Ю.Ю.", "Пикулин Юрий Юрьевич"},
	{"Подколзина А.И.", "Подколзина Анджэлла Ивановна"},
	{"Подхватилина Т.А.", "Подхватилина Татьяна Андреевна"},
	{"Полунина Е.М.", "Полунина Екатерина Михайловна"},
	{"Порицкая Г.В.", "Порицкая Галина Владиславовна"},
	{"Прохорова Е.Р.", "Прохорова Екатерина Романовна"},
	{"Прохорова С.Н.", "Прохорова Светлана Николаевна"},
	{"Птицына А.А.", "Птицына Александра Андреевна"},
	{"Пугинская Т.И.", "Пугинская Татьяна Ивановна"},
	{"Пылаева Н.С.", "Пылаева Надежда Сергеевна"},
	{"Решетникова О.Л.", "Решетникова Оксана Леонидовна"},
	{"Рогова М.В.", "Рогова Марина Васильевна"},
	{"Родина Т.Е.", "Родина Татьяна Евгеньевна"},
	{"Родионов С.А.", "Родионов Сергей Александрович"},
	{"Родионова А.С.", "Родионова Анастасия Сергеевна"},
	{"Савин Е.В.", "Савин Евгений Валерьевич"},
	{"Савина Е.В.", "Савина Екатерина Владимировна"},
	{"Сальникова М.А.", "Сальникова Мария Алексеевна"},
	{"Светлова Т.В.", "Светлова Татьяна Валерьевна"},
	{"Сенгилейцев Ю.Е.", "Сенгилейцев Юрий Евгеньевич"},
	{"Серебрякова О.Е.", "Серебрякова Олеся Евгеньевна"},
	{"Сидоров С.Р.", "Сидоров Сергей Романович"},
	{"Сизова И.Г.", "Сизова Ирина Гаруновна"},
	{"Слезкин А.В.", "Слезкин Александр Викторович"},
	{"Слепужникова М.И.", "Слепужникова Марина Ивановна"},
	{"Сорокин Н.А.", "Сорокин Николай Александрович"},
	{"Ташкинова М.А.", "Ташкинова Марина Александровна"},
	{"Ташогло А.Н.", "Ташогло Андрей Николаевич"},
	{"Ташогло М.А.", "Ташогло Мария Андреевна"},
	{"Терентьев К.А.", "Терентьев Кирилл Александрович"},
	{"Тишкова Е.М.", "Тишкова Екатерина Михайловна"},
	{"Ткаченко В.Я.", "Ткаченко Вячеслав Яковлевич"},
	{"Уланова Е.В.", "Уланова Елена Валерьевна"},
	{"Ульянов А.А.", "Ульянов Алексей Анатольевич"},
	{"Фадеева Е.В.", "Фадеева Екатерина Валерьевна"},
	{"Федосеева Н.В.", "Федосеева Наталья Викторовна"},
	{"Хорькова Л.А.", "Хорькова Людмила Анатольевна"},
	{"Хорькова О.А.", "Хорькова Ольга Александровна"},
	{"Чашкина И.Т.", "Чашкина Ирина Томовна"},
	{"Чеснова Е.В.", "Чеснова Елена Владимировна"},
	{"Чикалова Л.С.", "Чикалова Людмила Степановна"},
	{"Чубан С.Н.", "Чубан Светлана Николаевна"},
	{"Шевченко А.Ю.", "Шевченко Андрей Юрьевич"},
	{"Широченко А.С.", "Широченко Александра Сергеевна"},
	{"Широченко М.Э.", "Широченко Михаил Эльдарович"},
	{"Шулежко А.А.", "Шулежко Андрей Александрович"},
	{"Шувалова О.Т.", "Шувалова Ольга Тахировна"},
	{"Южаков В.А.", "Южаков Владимир Андреевич"},
	{"Ярцева А.В.", "Ярцева Анна Владимировна"},
	{"Майготова А.Б.", "Майготова Анна Борисовна"},
	{"Дворницына А.А.", "Дворницына Алла Александровна"},
	{"Батин П.Н.", "Батин Павел Николаевич"},
}

// Teachers expands short teacher names into full names.
type Teachers struct {
	byShort map[string]string
}

// NewTeachers builds the lookup from the bundled table.
func NewTeachers() *Teachers {
	t := &Teachers{byShort: make(map[string]string, len(teacherNames))}
	for _, n := range teacherNames {
		t.byShort[normalizeName(n[0])] = n[1]
	}
	return t
}

// FullName returns the full name for short, or short itself when unknown.
func (t *Teachers) FullName(short string) string {
	if t == nil {
		return short
	}
	if full, ok := t.byShort[normalizeName(short)]; ok {
		return full
	}
	return short
}

// Len returns the number of known teachers.
func (t *Teachers) Len() int { return len(t.byShort) }

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
