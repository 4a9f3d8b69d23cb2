package store

import "time"

type userRecord struct {
	ID                 uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Username           string `gorm:"column:username;uniqueIndex;not null"`
	Email              string `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash       string `gorm:"column:password_hash;not null;default:''"`
	RefreshFingerprint string `gorm:"column:refresh_fingerprint;not null;default:''"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (userRecord) TableName() string {
	return "users"
}

// Book is a catalog row cached from the upstream search API.
type Book struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string `gorm:"column:title;not null" json:"title"`
	Link        string `gorm:"column:link" json:"link"`
	Image       string `gorm:"column:image" json:"image"`
	Author      string `gorm:"column:author" json:"author"`
	Discount    string `gorm:"column:discount" json:"discount"`
	Publisher   string `gorm:"column:publisher" json:"publisher"`
	Pubdate     string `gorm:"column:pubdate" json:"pubdate"`
	ISBN        string `gorm:"column:isbn;uniqueIndex;not null" json:"isbn"`
	Description string `gorm:"column:description" json:"description"`
}

func (Book) TableName() string {
	return "books"
}

// CartItem is one line item in a user's cart.
type CartItem struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID   uint64 `gorm:"column:user_id;index;not null" json:"userId"`
	BookID   uint64 `gorm:"column:book_id;index;not null" json:"bookId"`
	Quantity int    `gorm:"column:quantity;not null" json:"quantity"`
	Book     *Book  `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Event is a storefront promotion with a display window.
type Event struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	StartDate   time.Time `gorm:"column:start_date;not null" json:"startDate"`
	EndDate     time.Time `gorm:"column:end_date;not null" json:"endDate"`
	ImageURL    string    `gorm:"column:image_url" json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Event) TableName() string {
	return "events"
}
