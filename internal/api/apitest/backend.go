// Package apitest fournit un faux service de données (gin + httptest) pour les
// tests : état en mémoire, compteur d'appels par route et injection de pannes.
package apitest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"usha_storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StatusDrop coupe la connexion sans réponse (erreur réseau côté client)
const StatusDrop = -1

type failure struct {
	status    int
	remaining int // <0 : illimité
}

type Backend struct {
	mu sync.Mutex

	products  map[models.ID]models.Product
	carts     map[models.ID]*models.Cart
	orders    map[models.ID]models.Order
	payments  []models.Payment
	discounts []models.Discount
	wishlists map[models.ID]*models.Wishlist
	users     map[string]account
	intents   map[string]models.PaymentIntentRequest
	completed map[string]bool

	calls    map[string]int
	bodies   map[string][]string
	failures map[string]*failure
	delays   map[string]time.Duration

	nextID int64
	token  string

	server *httptest.Server
}

type account struct {
	user     models.User
	password string
}

// New démarre le faux service ; il est arrêté à la fin du test
func New(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		products:  map[models.ID]models.Product{},
		carts:     map[models.ID]*models.Cart{},
		orders:    map[models.ID]models.Order{},
		wishlists: map[models.ID]*models.Wishlist{},
		users:     map[string]account{},
		intents:   map[string]models.PaymentIntentRequest{},
		completed: map[string]bool{},
		calls:     map[string]int{},
		bodies:    map[string][]string{},
		failures:  map[string]*failure{},
		delays:    map[string]time.Duration{},
		nextID:    100,
	}
	b.server = httptest.NewServer(b.router())
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) URL() string { return b.server.URL }

// RequireToken fait répondre 401 à toute requête protégée sans ce jeton
func (b *Backend) RequireToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func (b *Backend) AddProduct(p models.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[p.ID] = p
}

func (b *Backend) AddDiscount(d models.Discount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discounts = append(b.discounts, d)
}

func (b *Backend) AddUser(u models.User, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[u.Email] = account{user: u, password: password}
}

func (b *Backend) AddOrder(o models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.ID] = o
}

func (b *Backend) AddPayment(p models.Payment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payments = append(b.payments, p)
}

func (b *Backend) Order(id models.ID) (models.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	return o, ok
}

// SetCart remplace le panier persisté ; les ids de lignes manquants sont attribués
func (b *Backend) SetCart(userID models.ID, items ...models.CartItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart := b.cartLocked(userID)
	cart.Items = nil
	for _, it := range items {
		if it.ID == 0 {
			it.ID = b.newIDLocked()
		}
		cart.Items = append(cart.Items, it)
	}
}

// Cart retourne l'état persisté, produits embarqués compris
func (b *Backend) Cart(userID models.ID) models.Cart {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renderCartLocked(userID)
}

// Intent retourne la demande reçue par /payments/create-intent
func (b *Backend) Intent(id string) (models.PaymentIntentRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.intents[id]
	return req, ok
}

// Calls compte les appels d'une route, ex. "POST /payments/complete"
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// Bodies retourne les corps JSON reçus par une route, dans l'ordre
func (b *Backend) Bodies(route string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies[route]...)
}

// Fail fait échouer une route avec status jusqu'à Heal
func (b *Backend) Fail(route string, status int) {
	b.FailTimes(route, status, -1)
}

// FailTimes fait échouer les n prochains appels d'une route
func (b *Backend) FailTimes(route string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = &failure{status: status, remaining: n}
}

func (b *Backend) Heal(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Delay ralentit une route ; la requête est abandonnée si le client annule
func (b *Backend) Delay(route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[route] = d
}

func (b *Backend) newIDLocked() models.ID {
	b.nextID++
	return models.ID(b.nextID)
}

func (b *Backend) cartLocked(userID models.ID) *models.Cart {
	cart, ok := b.carts[userID]
	if !ok {
		cart = &models.Cart{ID: userID, User: models.CartOwner{ID: userID}}
		b.carts[userID] = cart
	}
	return cart
}

func (b *Backend) renderCartLocked(userID models.ID) models.Cart {
	out := b.cartLocked(userID).Clone()
	if out.Items == nil {
		out.Items = []models.CartItem{}
	}
	for i := range out.Items {
		if p, ok := b.products[out.Items[i].ProductID]; ok {
			out.Items[i].Product = &p
		}
	}
	return out
}

// intercept compte l'appel puis applique pannes, jeton et latence
func (b *Backend) intercept(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	b.mu.Lock()
	b.calls[route]++
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		var raw []byte
		raw, _ = c.GetRawData()
		b.bodies[route] = append(b.bodies[route], string(raw))
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	}
	f := b.failures[route]
	status := 0
	if f != nil {
		status = f.status
		if f.remaining > 0 {
			f.remaining--
			if f.remaining == 0 {
				delete(b.failures, route)
			}
		}
	}
	token := b.token
	delay := b.delays[route]
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}

	switch {
	case status == StatusDrop:
		if conn, _, err := c.Writer.Hijack(); err == nil {
			conn.Close()
		}
		c.Abort()
		return
	case status != 0:
		c.AbortWithStatusJSON(status, gin.H{"statusCode": status, "message": "panne simulée"})
		return
	}

	if token != "" && !public(c) && c.GetHeader("Authorization") != "Bearer "+token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"statusCode": 401, "message": "Unauthorized"})
		return
	}
	c.Next()
}

func public(c *gin.Context) bool {
	return strings.HasPrefix(c.FullPath(), "/auth/") ||
		(c.Request.Method == http.MethodGet &&
			(strings.HasPrefix(c.FullPath(), "/products") || c.FullPath() == "/discounts"))
}

func (b *Backend) router() *gin.Engine {
	r := gin.New()
	r.Use(b.intercept)

	r.POST("/auth/signin", b.signin)
	r.POST("/auth/signup", b.signup)

	r.GET("/products", b.listProducts)
	r.GET("/products/:id", b.getProduct)
	r.GET("/products/analytics/category-stats", b.categoryStats)
	r.GET("/discounts", b.listDiscounts)

	r.GET("/cart/:userId", b.getCart)
	r.DELETE("/cart/:userId", b.clearCart)
	r.POST("/cart/:userId/items", b.addCartItem)
	r.PATCH("/cart/:userId/items/:itemId", b.updateCartItem)
	r.DELETE("/cart/:userId/items/:itemId", b.removeCartItem)

	r.GET("/wishlist/:userId", b.getWishlist)
	r.POST("/wishlist/:userId/items", b.addWishlistItem)
	r.DELETE("/wishlist/:userId/items/:itemId", b.removeWishlistItem)
	r.GET("/wishlist/:userId/check/:productId", b.checkWishlist)

	r.POST("/payments/create-intent", b.createIntent)
	r.POST("/payments/complete", b.completePayment)
	r.POST("/payments/refund", b.refund)
	r.GET("/payments", b.listPayments)
	r.GET("/payments/:id", b.getPayment)
	r.GET("/payments/analytics/monthly-revenue", b.monthlyRevenue)

	r.GET("/orders", b.listOrders)
	r.GET("/orders/user/:userId", b.listUserOrders)
	r.GET("/orders/status/:status", b.listOrdersByStatus)
	r.GET("/orders/:id", b.getOrder)
	r.GET("/orders/analytics/most-ordered", b.mostOrdered)
	r.PATCH("/orders/:id/status", b.updateOrderStatus)
	return r
}

func idParam(c *gin.Context, name string) (models.ID, bool) {
	id, err := models.ParseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"statusCode": 400, "message": err.Error()})
		return 0, false
	}
	return id, true
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"statusCode": 404, "message": what + " not found"})
}

func (b *Backend) signin(c *gin.Context) {
	var creds models.SigninCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	acc, ok := b.users[creds.Email]
	token := b.token
	b.mu.Unlock()
	if !ok || acc.password != creds.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"statusCode": 401, "message": "Invalid credentials"})
		return
	}
	if token == "" {
		token = fmt.Sprintf("token-%d", acc.user.ID)
	}
	// l'id utilisateur est renvoyé en chaîne, comme le vrai service
	c.JSON(http.StatusOK, gin.H{"access_token": token, "user": gin.H{
		"id": acc.user.ID.String(), "firstname": acc.user.FirstName, "lastname": acc.user.LastName,
		"role": acc.user.Role, "email": acc.user.Email,
	}})
}

func (b *Backend) signup(c *gin.Context) {
	var data models.SignupData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	if _, exists := b.users[data.Email]; exists {
		b.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"statusCode": 409, "message": "Email already registered"})
		return
	}
	u := models.User{ID: b.newIDLocked(), FirstName: data.FirstName, LastName: data.LastName, Email: data.Email, Role: models.RoleBuyer}
	b.users[data.Email] = account{user: u, password: data.Password}
	token := b.token
	b.mu.Unlock()
	if token == "" {
		token = fmt.Sprintf("token-%d", u.ID)
	}
	c.JSON(http.StatusCreated, models.AuthResponse{AccessToken: token, User: u})
}

func (b *Backend) listProducts(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Product, 0, len(b.products))
	for _, p := range b.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (b *Backend) getProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b.mu.Lock()
	p, found := b.products[id]
	b.mu.Unlock()
	if !found {
		notFound(c, "Product")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (b *Backend) listDiscounts(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, append([]models.Discount{}, b.discounts...))
}

func (b *Backend) getCart(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.renderCartLocked(userID))
}

func (b *Backend) clearCart(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cartLocked(userID).Items = nil
	c.Status(http.StatusOK)
}

func (b *Backend) addCartItem(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var in models.CartItemInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"statusCode": 400, "message": "invalid item"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, found := b.products[in.ProductID]; !found {
		notFound(c, "Product")
		return
	}
	cart := b.cartLocked(userID)
	cart.Items = append(cart.Items, models.CartItem{
		ID: b.newIDLocked(), ProductID: in.ProductID, Quantity: in.Quantity, CustomizationData: in.CustomizationData,
	})
	c.JSON(http.StatusCreated, b.renderCartLocked(userID))
}

func (b *Backend) updateCartItem(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var in models.CartItemInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"statusCode": 400, "message": "invalid quantity"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cart := b.cartLocked(userID)
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items[i].Quantity = in.Quantity
			if in.CustomizationData != nil {
				cart.Items[i].CustomizationData = in.CustomizationData
			}
			c.JSON(http.StatusOK, b.renderCartLocked(userID))
			return
		}
	}
	notFound(c, "Cart item")
}

func (b *Backend) removeCartItem(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cart := b.cartLocked(userID)
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			c.Status(http.StatusOK)
			return
		}
	}
	notFound(c, "Cart item")
}

func (b *Backend) wishlistLocked(userID models.ID) *models.Wishlist {
	w, ok := b.wishlists[userID]
	if !ok {
		w = &models.Wishlist{ID: userID, User: models.CartOwner{ID: userID}, Items: []models.WishlistItem{}}
		b.wishlists[userID] = w
	}
	return w
}

func (b *Backend) getWishlist(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	w := *b.wishlistLocked(userID)
	w.Items = append([]models.WishlistItem{}, w.Items...)
	for i := range w.Items {
		if p, found := b.products[w.Items[i].ProductID]; found {
			w.Items[i].Product = &p
		}
	}
	c.JSON(http.StatusOK, w)
}

func (b *Backend) addWishlistItem(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var in models.WishlistItem
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.wishlistLocked(userID)
	w.Items = append(w.Items, models.WishlistItem{ID: b.newIDLocked(), ProductID: in.ProductID})
	c.Status(http.StatusCreated)
}

func (b *Backend) removeWishlistItem(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.wishlistLocked(userID)
	for i := range w.Items {
		if w.Items[i].ID == itemID {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			c.Status(http.StatusOK)
			return
		}
	}
	notFound(c, "Wishlist item")
}

func (b *Backend) checkWishlist(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	found := false
	for _, it := range b.wishlistLocked(userID).Items {
		if it.ProductID == productID {
			found = true
		}
	}
	c.JSON(http.StatusOK, gin.H{"inWishlist": found})
}

func (b *Backend) createIntent(c *gin.Context) {
	var req models.PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"statusCode": 400, "message": "invalid amount"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := fmt.Sprintf("pi_%d", b.newIDLocked())
	b.intents[id] = req
	c.JSON(http.StatusCreated, models.PaymentIntent{ClientSecret: id + "_secret_test", PaymentIntentID: id})
}

// completePayment crée la commande PENDING correspondant à l'intention
func (b *Backend) completePayment(c *gin.Context) {
	var in models.PaymentCompletion
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.intents[in.PaymentIntentID]
	if !ok {
		notFound(c, "Payment intent")
		return
	}
	if b.completed[in.PaymentIntentID] {
		c.Status(http.StatusOK)
		return
	}
	b.completed[in.PaymentIntentID] = true

	total := decimal.New(req.Amount, -2)
	order := models.Order{
		ID:          b.newIDLocked(),
		OrderDate:   time.Now().UTC(),
		TotalAmount: total,
		Status:      models.OrderStatusPending,
		User:        models.OrderUser{ID: req.UserID},
	}
	for _, it := range req.OrderItems {
		item := models.OrderItem{ID: b.newIDLocked(), Quantity: it.Quantity, Product: b.products[it.ProductID]}
		for _, cz := range it.Customizations {
			item.Customizations = append(item.Customizations, models.OrderCustomization{ID: cz.CustomizationOptionID, SelectedValue: cz.SelectedValue})
		}
		order.OrderItems = append(order.OrderItems, item)
	}
	b.orders[order.ID] = order
	b.payments = append(b.payments, models.Payment{
		ID: b.newIDLocked(), PaymentMethod: "card", Amount: total, PaymentDate: order.OrderDate,
		StripeID: in.PaymentIntentID, Status: "succeeded",
		Order: models.PaymentOrder{ID: order.ID, OrderDate: order.OrderDate, TotalAmount: total, Status: string(order.Status)},
	})
	c.JSON(http.StatusOK, gin.H{"orderId": order.ID})
}

func (b *Backend) refund(c *gin.Context) {
	var in models.PaymentRefund
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.payments {
		if b.payments[i].ID == in.PaymentID {
			b.payments[i].Status = "refunded"
			c.Status(http.StatusOK)
			return
		}
	}
	notFound(c, "Payment")
}

func (b *Backend) listPayments(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, append([]models.Payment{}, b.payments...))
}

func (b *Backend) getPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.payments {
		if p.ID == id {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	notFound(c, "Payment")
}

func (b *Backend) sortedOrdersLocked(keep func(models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range b.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) listOrders(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.sortedOrdersLocked(func(models.Order) bool { return true }))
}

func (b *Backend) listUserOrders(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.sortedOrdersLocked(func(o models.Order) bool { return o.User.ID == userID }))
}

func (b *Backend) listOrdersByStatus(c *gin.Context) {
	status := models.OrderStatus(c.Param("status"))
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.sortedOrdersLocked(func(o models.Order) bool { return o.Status == status }))
}

func (b *Backend) getOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	o, found := b.Order(id)
	if !found {
		notFound(c, "Order")
		return
	}
	c.JSON(http.StatusOK, o)
}

func (b *Backend) updateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || !in.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"statusCode": 400, "message": "invalid status"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, found := b.orders[id]
	if !found {
		notFound(c, "Order")
		return
	}
	o.Status = in.Status
	b.orders[id] = o
	c.JSON(http.StatusOK, o)
}

// AddPaymentAt ajoute un paiement réussi à la date donnée (tableaux de revenus)
func (b *Backend) AddPaymentAt(amount decimal.Decimal, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payments = append(b.payments, models.Payment{
		ID: b.newIDLocked(), PaymentMethod: "card", Amount: amount, PaymentDate: at, Status: "succeeded",
	})
}

func (b *Backend) monthlyRevenue(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"statusCode": 400, "message": "year is required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	byMonth := map[time.Month]*models.MonthlyRevenue{}
	for _, p := range b.payments {
		if p.Status != "succeeded" || p.PaymentDate.Year() != year {
			continue
		}
		m := byMonth[p.PaymentDate.Month()]
		if m == nil {
			m = &models.MonthlyRevenue{Month: p.PaymentDate.Month().String()}
			byMonth[p.PaymentDate.Month()] = m
		}
		m.Revenue = m.Revenue.Add(p.Amount)
		m.TotalOrders++
	}
	out := []models.MonthlyRevenue{}
	for month := time.January; month <= time.December; month++ {
		if m := byMonth[month]; m != nil {
			m.AverageOrderValue = m.Revenue.Div(decimal.NewFromInt(int64(m.TotalOrders))).Round(2)
			out = append(out, *m)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) mostOrdered(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byProduct := map[models.ID]*models.MostOrderedProduct{}
	for _, o := range b.orders {
		if o.Status == models.OrderStatusCancelled {
			continue
		}
		seen := map[models.ID]bool{}
		for _, it := range o.OrderItems {
			p := byProduct[it.Product.ID]
			if p == nil {
				p = &models.MostOrderedProduct{ProductID: it.Product.ID, ProductName: it.Product.Name}
				byProduct[it.Product.ID] = p
			}
			if !seen[it.Product.ID] {
				seen[it.Product.ID] = true
				p.TotalOrders++
			}
			p.TotalQuantity += it.Quantity
			p.TotalRevenue = p.TotalRevenue.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	out := make([]models.MostOrderedProduct, 0, len(byProduct))
	for _, p := range byProduct {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	c.JSON(http.StatusOK, out)
}

func (b *Backend) categoryStats(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byCategory := map[string]*models.CategoryStats{}
	for _, p := range b.products {
		st := byCategory[p.Category]
		if st == nil {
			st = &models.CategoryStats{Category: p.Category}
			byCategory[p.Category] = st
		}
		st.ProductCount++
		st.TotalValue = st.TotalValue.Add(p.Price)
	}
	out := make([]models.CategoryStats, 0, len(byCategory))
	for _, st := range byCategory {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	c.JSON(http.StatusOK, out)
}
