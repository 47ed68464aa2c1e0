package upstream

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/noah-isme/toko-storefront/internal/selection"
)

// ID is a member identifier that the shop backend emits either as a JSON
// number or a string depending on the endpoint.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as text.
func (id ID) String() string { return string(id) }

// Product is the payload of GET /api/product/product_id/{id}.
type Product struct {
	Product         ProductDetail `json:"product"`
	CompanyName     string        `json:"company_name"`
	CategoryName    string        `json:"category_name"`
	SubcategoryName string        `json:"subcategory_name"`
	Images          []MainImage   `json:"productImgs"`
	DetailImages    []DetailImage `json:"productDetailsImgs"`
}

// ProductDetail holds the core product columns.
type ProductDetail struct {
	ID          int64    `json:"product_id"`
	Name        string   `json:"product_name"`
	Content     string   `json:"product_content"`
	Price       int64    `json:"product_price"`
	AverageRate *float64 `json:"average_rate"`
	MemberID    ID       `json:"member_id,omitempty"`
}

type MainImage struct {
	ID  int64  `json:"main_img_id"`
	URI string `json:"main_img_uri"`
}

type DetailImage struct {
	ID  int64  `json:"details_img_id"`
	URI string `json:"sub_img_uri"`
}

// Board is the payload of GET /api/gameboard/id/{id}.
type Board struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"board_content"`
	Count    int64  `json:"board_count"`
	MemberID ID     `json:"member_id"`
	RegTime  string `json:"reg_time"`
	Files    []File `json:"files"`
}

type File struct {
	ID   int64  `json:"id"`
	Name string `json:"file_name"`
	URL  string `json:"file_url"`
}

// Like is the like state of a board as reported by the backend.
type Like struct {
	Like  bool  `json:"like"`
	Count int64 `json:"countLike"`
}

type productLikeState struct {
	ProductLike bool `json:"productLike"`
}

type productLikeRequest struct {
	ProductID       int64         `json:"product_id"`
	IsFavorited     bool          `json:"isFavorited"`
	SelectedOptions selection.Set `json:"selectedOptions"`
}

type cartAddRequest struct {
	ProductID          int64             `json:"product_id"`
	SelectedOptionList []selection.Entry `json:"selectedOptionList"`
}

type likeRequest struct {
	GameBoardID int64 `json:"game_board_id"`
}

func idPath(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}
