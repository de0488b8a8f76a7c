package core

// Stock category catalogs offered by the app. Storage treats categories as
// free text; these only seed pickers in the presentation layer.
var (
	ExpenseCategories = []string{
		"Alimentación",
		"Transporte",
		"Entretenimiento",
		"Salud",
		"Educación",
		"Servicios",
		"Compras",
		"Otros Gastos",
	}

	IncomeCategories = []string{
		"Salario",
		"Freelance",
		"Inversiones",
		"Ventas",
		"Regalos",
		"Otros Ingresos",
	}
)
