package domain

// CommandType names a cart mutation.
type CommandType string

const (
	CommandSetCart        CommandType = "SET_CART"
	CommandAddItem        CommandType = "ADD_ITEM"
	CommandRemoveItem     CommandType = "REMOVE_ITEM"
	CommandUpdateQuantity CommandType = "UPDATE_QUANTITY"
	CommandClearCart      CommandType = "CLEAR_CART"
)

// Command is a tagged cart mutation. Only the fields relevant to Type are read.
type Command struct {
	Type      CommandType
	ProductID string
	Quantity  int
	Items     Cart
}

// SetCart replaces the whole cart.
func SetCart(items Cart) Command {
	return Command{Type: CommandSetCart, Items: items}
}

// AddItem adds one unit of productID.
func AddItem(productID string) Command {
	return Command{Type: CommandAddItem, ProductID: productID}
}

// RemoveItem drops productID's line.
func RemoveItem(productID string) Command {
	return Command{Type: CommandRemoveItem, ProductID: productID}
}

// UpdateQuantity sets productID's quantity; zero or less removes the line.
func UpdateQuantity(productID string, quantity int) Command {
	return Command{Type: CommandUpdateQuantity, ProductID: productID, Quantity: quantity}
}

// ClearCart empties the cart.
func ClearCart() Command {
	return Command{Type: CommandClearCart}
}
