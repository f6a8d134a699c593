package domain

import (
	"errors"
	"fmt"
)

// ErrMissingProduct reports a stored cart entry whose product reference did
// not resolve, such as a product deleted after it was added.
var ErrMissingProduct = errors.New("cart entry has no product")

// LineItem is one product/quantity pair of a cart. Quantity is always >= 1
// for an item held in a Cart.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the ordered set of line items for the current session, keyed by
// ProductID.
type Cart []LineItem

// ItemCount is the sum of quantities across all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c {
		n += it.Quantity
	}
	return n
}

// Index returns the position of productID or -1.
func (c Cart) Index(productID string) int {
	for i, it := range c {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Find returns the line for productID, if present.
func (c Cart) Find(productID string) (LineItem, bool) {
	if i := c.Index(productID); i >= 0 {
		return c[i], true
	}
	return LineItem{}, false
}

// Clone returns a copy that never aliases c. A nil or empty cart clones to
// an empty, non-nil cart so it encodes as [] on the wire.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// RemoteCartItem is a cart entry as stored by the backend, where the product
// reference is expanded into the full product document.
type RemoteCartItem struct {
	Product  Product `json:"productId"`
	Quantity int     `json:"quantity"`
}

// LineItem drops the expanded product down to its id.
func (r RemoteCartItem) LineItem() LineItem {
	return LineItem{ProductID: r.Product.ID, Quantity: r.Quantity}
}

// CartFromRemote translates backend entries into local line items.
func CartFromRemote(items []RemoteCartItem) Cart {
	out := make(Cart, 0, len(items))
	for _, it := range items {
		out = append(out, it.LineItem())
	}
	return out
}

// CheckRemote rejects a stored cart holding entries without a product id.
func CheckRemote(items []RemoteCartItem) error {
	for i, it := range items {
		if it.Product.ID == "" {
			return fmt.Errorf("%w: entry %d", ErrMissingProduct, i)
		}
	}
	return nil
}
