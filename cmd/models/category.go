package models

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"column:name;size:25;not null;uniqueIndex" json:"name"`

	Posts []Post `gorm:"foreignKey:CategoryID" json:"posts,omitempty"`
}

// SeedCategories is the starter set created on first migration.
func SeedCategories() []Category {
	return []Category{
		{Name: "Träd"},
		{Name: "Buskar"},
		{Name: "Blommor"},
		{Name: "Gräs"},
	}
}
