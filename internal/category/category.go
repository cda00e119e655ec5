package category

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
)

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Catalog is the fixed set of expense categories seeded into every install.
var Catalog = []Category{
	{Name: "Travel", Description: "Flights, trains and other long-distance travel", SortOrder: 1},
	{Name: "Food", Description: "Meals and client entertainment dining", SortOrder: 2},
	{Name: "Accommodation", Description: "Hotels and lodging", SortOrder: 3},
	{Name: "Transport", Description: "Local taxis, fuel, parking and tolls", SortOrder: 4},
	{Name: "Office Supplies", Description: "Stationery, equipment and software", SortOrder: 5},
	{Name: "Entertainment", Description: "Team events and client hospitality", SortOrder: 6},
	{Name: "Other", Description: "Anything that fits no other category", SortOrder: 7},
}

// CategoryResponse is the public view; submitters reference a category by Name.
type CategoryResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

type CategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

func (c *Category) ToResponse() CategoryResponse {
	return CategoryResponse{Name: c.Name, Description: c.Description, SortOrder: c.SortOrder}
}

func ToDataModel(c *Category) *categoryDatamodel.ExpenseCategory {
	return &categoryDatamodel.ExpenseCategory{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func FromDataModel(c *categoryDatamodel.ExpenseCategory) *Category {
	return &Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
