package models

// Category - раздел каталога. Подкатегории ссылаются на родителя через ParentID.
type Category struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Slug     string      `json:"slug"`
	ParentID *int64      `json:"parent_id,omitempty"`
	Children []*Category `json:"children"`
}

type Brand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Gender struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductFilter - отбор товаров по slug. Пустое поле не ограничивает выборку,
// категория включает все свои подкатегории.
type ProductFilter struct {
	Category string
	Brand    string
	Gender   string
}
