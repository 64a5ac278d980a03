package process

// Sample returns the built-in "Обработка заявки" template. Mock mode and the
// mock server serve it. Each call returns a fresh copy.
func Sample() []Process {
	return []Process{
		{
			ID:          1,
			Name:        "Обработка заявки",
			Description: "Тестовый бизнес-процесс обработки заявки с тремя этапами",
			Tasks: []Task{
				{
					ID:          1,
					Name:        "Создание заявки",
					Order:       1,
					Description: "Первый этап процесса - создание заявки с указанием основных данных",
				},
				{
					ID:          2,
					Name:        "Рассмотрение заявки",
					Order:       2,
					Description: "Второй этап - рассмотрение созданной заявки и принятие решения",
				},
				{
					ID:          3,
					Name:        "Утверждение заявки",
					Order:       3,
					Description: "Финальный этап - утверждение заявки на основе решения",
				},
			},
			DocumentTypes: []DocumentType{
				{
					ID:   1,
					Name: "Заявка",
					Fields: []Field{
						{Name: "номер", Type: "строка", Required: true},
						{Name: "дата", Type: "дата", Required: true},
						{Name: "название", Type: "строка", Required: true},
						{Name: "описание", Type: "текст", Required: false},
					},
				},
				{
					ID:   2,
					Name: "Решение по заявке",
					Fields: []Field{
						{Name: "номер", Type: "строка", Required: true},
						{Name: "дата", Type: "дата", Required: true},
						{Name: "решение", Type: "текст", Required: true},
						{Name: "комментарий", Type: "текст", Required: false},
					},
				},
				{
					ID:   3,
					Name: "Утверждение заявки",
					Fields: []Field{
						{Name: "номер", Type: "строка", Required: true},
						{Name: "дата", Type: "дата", Required: true},
						{Name: "утверждено", Type: "булево", Required: true},
						{Name: "комментарий", Type: "текст", Required: false},
					},
				},
			},
		},
	}
}
