package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/flowershop/internal/cart"
	"github.com/alextreichler/flowershop/internal/models"
)

type cartResponse struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice int               `json:"total_price"`
}

type errorBody struct {
	Error      string            `json:"error"`
	Fields     map[string]string `json:"fields"`
	RetryAfter int               `json:"retry_after"`
}

func seedFlowers(t *testing.T, env *testEnv) (rose, tulip *models.Flower) {
	t.Helper()
	ctx := context.Background()
	rose = &models.Flower{Name: "Rose", Price: 10, Available: true}
	tulip = &models.Flower{Name: "Tulip", Price: 5, Available: true}
	require.NoError(t, env.store.CreateFlower(ctx, rose))
	require.NoError(t, env.store.CreateFlower(ctx, tulip))
	return rose, tulip
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	resp, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestCart_Totals(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rose, tulip := seedFlowers(t, env)

	for i := 0; i < 3; i++ {
		resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": rose.ID})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": tulip.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPatch, "/api/cart/items/"+itoa(tulip.ID), map[string]int{"delta": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decode[cartResponse](t, body)
	assert.Equal(t, 5, c.TotalItems)
	assert.Equal(t, 40, c.TotalPrice)

	resp, body = env.do(t, http.MethodPut, "/api/cart/items/"+itoa(rose.ID), map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c = decode[cartResponse](t, body)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Tulip", c.Items[0].Flower.Name)

	resp, _ = env.do(t, http.MethodPut, "/api/cart/items/"+itoa(tulip.ID), map[string]int{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodDelete, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[cartResponse](t, body).TotalItems)
}

func TestCart_IsPerBrowser(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rose, _ := seedFlowers(t, env)

	resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": rose.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A fresh client has no cookie and an empty cart.
	other, err := http.Get(env.srv.URL + "/api/cart")
	require.NoError(t, err)
	defer other.Body.Close()
	var c cartResponse
	require.NoError(t, decodeReader(other.Body, &c))
	assert.Zero(t, c.TotalItems)
}

func TestCart_Rejections(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rose, _ := seedFlowers(t, env)

	resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": 999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	hidden := &models.Flower{Name: "Orchid", Price: 30}
	require.NoError(t, env.store.CreateFlower(context.Background(), hidden))
	resp, _ = env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": hidden.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, err := env.store.SetShopOpen(context.Background(), false)
	require.NoError(t, err)
	resp, body := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": rose.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "The shop is closed right now.", decode[errorBody](t, body).Error)
}

func TestCart_ManyFlowers(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()
	names := []string{
		"Роза красная Эквадор 70 см", "Роза белая Аваланч 60 см", "Роза кустовая пионовидная",
		"Тюльпан голландский жёлтый", "Пион розовый Сара Бернар", "Хризантема кустовая Балтика",
		"Эустома махровая белая", "Гортензия голубая крупная", "Альстромерия микс",
		"Гвоздика одноголовая бордовая", "Лилия восточная Сорбонна", "Ранункулюс персиковый",
		"Фрезия ароматная сиреневая", "Ирис синий голландский", "Калла белая Кристал Блаш",
		"ვარდი წითელი ეკვადორი", "ქრიზანთემა თეთრი", "Gypsophila Million Stars",
		"Eucalyptus Cinerea", "Protea King Cynaroides",
	}
	wantTotal := 0
	for i, name := range names {
		f := &models.Flower{
			Name:      name,
			Price:     150 + i*35,
			Available: true,
			ImageURL:  "/uploads/0f8fad5b-d9cb-469f-a165-70867728950" + itoa(i%10) + ".jpg",
		}
		require.NoError(t, env.store.CreateFlower(ctx, f))
		resp, body := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": f.ID})
		require.Equal(t, http.StatusOK, resp.StatusCode, "flower %d: %s", i, body)
		wantTotal += f.Price
	}

	resp, body := env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decode[cartResponse](t, body)
	require.Len(t, c.Items, len(names))
	for i, it := range c.Items {
		assert.Equal(t, names[i], it.Flower.Name)
		assert.Equal(t, 1, it.Quantity)
	}
	assert.Equal(t, len(names), c.TotalItems)
	assert.Equal(t, wantTotal, c.TotalPrice)
}

func TestCart_Full(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	var last *models.Flower
	for i := 0; i <= cart.MaxLines; i++ {
		last = &models.Flower{Name: "Tulip " + itoa(i), Price: 5, Available: true}
		require.NoError(t, env.store.CreateFlower(ctx, last))
		if i < cart.MaxLines {
			resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": last.ID})
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}
	}

	resp, body := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": last.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Your cart is full.", decode[errorBody](t, body).Error)

	_, body = env.do(t, http.MethodGet, "/api/cart", nil)
	assert.Equal(t, cart.MaxLines, decode[cartResponse](t, body).TotalItems)
}

func TestCart_FollowsCatalog(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()
	rose, tulip := seedFlowers(t, env)

	for _, f := range []*models.Flower{rose, tulip} {
		resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": f.ID})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	rose.Price = 12
	require.NoError(t, env.store.UpdateFlower(ctx, rose))
	tulip.Available = false
	require.NoError(t, env.store.UpdateFlower(ctx, tulip))

	resp, body := env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decode[cartResponse](t, body)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Rose", c.Items[0].Flower.Name)
	assert.Equal(t, 12, c.TotalPrice)

	// the withdrawn line stays gone once the flower is back
	tulip.Available = true
	require.NoError(t, env.store.UpdateFlower(ctx, tulip))
	_, body = env.do(t, http.MethodGet, "/api/cart", nil)
	assert.Len(t, decode[cartResponse](t, body).Items, 1)
}

func TestFlowers_Search(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()
	require.NoError(t, env.store.CreateFlower(ctx, &models.Flower{Name: "Пион", Price: 12, Available: true}))
	require.NoError(t, env.store.CreateFlower(ctx, &models.Flower{Name: "Красная роза", Price: 10, Available: true}))

	resp, body := env.do(t, http.MethodGet, "/api/flowers?q=ros", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	flowers := decode[[]models.Flower](t, body)
	require.Len(t, flowers, 1)
	assert.Equal(t, "Красная роза", flowers[0].Name)

	resp, body = env.do(t, http.MethodGet, "/api/flowers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Flower](t, body), 2)
}

func TestLanguage(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/api/lang", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.5")
	_, body := env.send(t, req)
	assert.Equal(t, "ru", decode[map[string]string](t, body)["lang"])

	resp, _ := env.do(t, http.MethodPut, "/api/lang", map[string]string{"lang": "fr"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/lang", map[string]string{"lang": "ka"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(t, http.MethodGet, "/api/lang", nil)
	assert.Equal(t, "ka", decode[map[string]string](t, body)["lang"])

	resp, body = env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": 42})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "ვერ მოიძებნა.", decode[errorBody](t, body).Error)

	resp, body = env.do(t, http.MethodGet, "/api/i18n/ru", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Самовывоз", decode[map[string]string](t, body)["order.pickup"])

	resp, _ = env.do(t, http.MethodGet, "/api/i18n/de", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func bouquetOrder() map[string]interface{} {
	return map[string]interface{}{
		"type":           "custom_bouquet",
		"customer_name":  "Nino",
		"customer_phone": "+995 555 12 34 56",
		"delivery_type":  "pickup",
		"lines":          []string{"Rose × 3", "Tulip × 2"},
		"total_price":    40,
	}
}

func TestOrder_BouquetCooldown(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rose, _ := seedFlowers(t, env)

	resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]int{"flower_id": rose.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, true, decode[map[string]interface{}](t, body)["success"])

	msgs := env.telegram.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "-100", msgs[0]["chat_id"])
	assert.Equal(t, "HTML", msgs[0]["parse_mode"])
	assert.Contains(t, msgs[0]["text"], "Rose × 3")

	_, body = env.do(t, http.MethodGet, "/api/cart", nil)
	assert.Zero(t, decode[cartResponse](t, body).TotalItems, "a sent bouquet empties the cart")

	resp, body = env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	eb := decode[errorBody](t, body)
	assert.Equal(t, 300, eb.RetryAfter)
	assert.NotEmpty(t, eb.Error)
	assert.Len(t, env.telegram.Messages(), 1)

	env.clock.Advance(299 * time.Second)
	resp, body = env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, decode[errorBody](t, body).RetryAfter)

	env.clock.Advance(2 * time.Second)
	resp, _ = env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, env.telegram.Messages(), 2)
}

func TestOrder_ProductOrderHasNoCooldown(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	p := &models.Product{Name: "Spring mix", Price: 1000, Discount: 20, Available: true}
	require.NoError(t, env.store.CreateProduct(context.Background(), p))

	payload := map[string]interface{}{
		"product_id":     p.ID,
		"product_name":   "Spring mix",
		"product_price":  1,
		"customer_name":  "Nino",
		"customer_phone": "995555123456",
		"delivery_type":  "delivery",
		"address":        "Rustaveli Ave 12",
		"timing_type":    "urgent",
	}
	for i := 0; i < 2; i++ {
		resp, body := env.do(t, http.MethodPost, "/api/orders", payload)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		env.clock.Advance(5 * time.Second)
	}
	msgs := env.telegram.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0]["text"], "800 ₾", "price comes from the catalog")
}

func TestOrder_ValidationFailsBeforeNetwork(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	payload := bouquetOrder()
	payload["customer_name"] = "N"
	payload["customer_phone"] = "123"
	resp, body := env.do(t, http.MethodPost, "/api/orders", payload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	eb := decode[errorBody](t, body)
	assert.Contains(t, eb.Fields, "customer_name")
	assert.Contains(t, eb.Fields, "customer_phone")
	assert.Empty(t, env.telegram.Messages())

	resp, _ = env.do(t, http.MethodPost, "/api/orders", map[string]string{"type": "gift_card"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/orders", strings.NewReader("{"))
	require.NoError(t, err)
	resp, _ = env.send(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A rejected bouquet does not start the cooldown.
	resp, _ = env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// freshPost sends an order over a new connection so the client port differs.
func (e *testEnv) freshPost(t *testing.T, payload interface{}) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/orders", bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "ru")
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestOrder_DuplicateSubmitGuard(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp, body := env.freshPost(t, bouquetOrder())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// new connection, same host, no cookie: only the per-host guard applies
	resp, body = env.freshPost(t, bouquetOrder())
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	eb := decode[errorBody](t, body)
	assert.Equal(t, "Заказ только что отправлен. Подождите несколько секунд.", eb.Error)
	assert.Equal(t, 3, eb.RetryAfter)
	assert.Len(t, env.telegram.Messages(), 1)

	env.clock.Advance(3 * time.Second)
	resp, _ = env.freshPost(t, bouquetOrder())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOrder_RejectedSubmitDoesNotHoldGuard(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	bad := bouquetOrder()
	bad["customer_phone"] = "123"
	resp, _ := env.do(t, http.MethodPost, "/api/orders", bad)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// corrected at once
	resp, body := env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	env.telegram.SetStatus(http.StatusBadRequest)
	env.clock.Advance(301 * time.Second)
	resp, _ = env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	env.telegram.SetStatus(http.StatusOK)
	resp, _ = env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	assert.Equal(t, http.StatusOK, resp.StatusCode, "a failed send releases the guard")
}

func TestOrder_ShopClosed(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, err := env.store.SetShopOpen(context.Background(), false)
	require.NoError(t, err)

	resp, _ := env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.telegram.Messages())
}

func TestOrder_TelegramNotConfigured(t *testing.T) {
	env := newTestEnv(t, envOptions{telegramOff: true})

	resp, body := env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, decode[errorBody](t, body).Error)
	assert.Empty(t, env.telegram.Messages())

	// Failed submissions leave the cooldown untouched.
	assert.Nil(t, env.cookie(t, "flower-state"))
}

func TestOrder_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.telegram.SetStatus(http.StatusBadRequest)

	resp, body := env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "We could not send your order. Please try again.", decode[errorBody](t, body).Error)
	assert.Len(t, env.telegram.Messages(), 1)

	env.telegram.SetStatus(http.StatusOK)
	resp, _ = env.do(t, http.MethodPost, "/api/orders", bouquetOrder())
	assert.Equal(t, http.StatusOK, resp.StatusCode, "no cooldown after a failed send")
}
