package handler_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stallpass/api/internal/auth"
	"github.com/stallpass/api/internal/handler"
)

func setupFoodRouter(store *memCatalog, p *auth.Principal) *chi.Mux {
	h := handler.NewFoodItemHandler(store)
	return newRouter(p, h.RegisterRoutes)
}

func TestFoodItemCreate_Defaults(t *testing.T) {
	store := newMemCatalog()
	p := ownerPrincipal(uuid.Nil)
	s := store.addStall(p.UserID, true, true)
	router := setupFoodRouter(store, p)

	rr := doRequest(t, router, "POST", "/stalls/"+s.ID.String()+"/items", map[string]string{
		"name":  "Vada Pav",
		"price": "25.5",
	})
	assertStatus(t, rr, http.StatusCreated)
	body := decodeMap(t, rr)
	if body["price"] != "25.50" {
		t.Errorf("price: got %v, want 25.50", body["price"])
	}
	if body["isVeg"] != true || body["isAvailable"] != true {
		t.Errorf("flags: isVeg=%v isAvailable=%v, want both true", body["isVeg"], body["isAvailable"])
	}
}

func TestFoodItemCreate_Validation(t *testing.T) {
	store := newMemCatalog()
	p := ownerPrincipal(uuid.Nil)
	s := store.addStall(p.UserID, true, true)
	router := setupFoodRouter(store, p)
	path := "/stalls/" + s.ID.String() + "/items"

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing name", map[string]string{"price": "10"}, "Name is required"},
		{"missing price", map[string]string{"name": "Tea"}, "Price is required"},
		{"negative price", map[string]string{"name": "Tea", "price": "-1"}, "invalid price"},
		{"garbage price", map[string]string{"name": "Tea", "price": "ten"}, "invalid price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", path, tt.body)
			assertStatus(t, rr, http.StatusBadRequest)
			assertMessage(t, rr, tt.want)
		})
	}
}

func TestFoodItemCreate_OtherStallForbidden(t *testing.T) {
	store := newMemCatalog()
	other := store.addStall(uuid.New(), true, true)
	router := setupFoodRouter(store, ownerPrincipal(uuid.Nil))

	rr := doRequest(t, router, "POST", "/stalls/"+other.ID.String()+"/items", map[string]string{"name": "Tea", "price": "10"})
	assertStatus(t, rr, http.StatusForbidden)
}

func TestFoodItemUpdate_Partial(t *testing.T) {
	store := newMemCatalog()
	p := ownerPrincipal(uuid.Nil)
	s := store.addStall(p.UserID, true, true)
	item := store.addFood(t, s.ID, "Samosa", "15")
	router := setupFoodRouter(store, p)

	rr := doRequest(t, router, "PUT", "/stalls/items/"+item.ID.String(), map[string]interface{}{"isAvailable": false})
	assertStatus(t, rr, http.StatusOK)

	got := store.foods[item.ID]
	if got.IsAvailable {
		t.Error("item still available")
	}
	if got.Name != "Samosa" {
		t.Errorf("name changed to %q", got.Name)
	}
	if body := decodeMap(t, rr); body["price"] != "15.00" {
		t.Errorf("price: got %v, want 15.00", body["price"])
	}
}

func TestFoodItemDelete(t *testing.T) {
	store := newMemCatalog()
	s := store.addStall(uuid.New(), true, true)
	fresh := store.addFood(t, s.ID, "Lassi", "30")
	sold := store.addFood(t, s.ID, "Kulfi", "20")
	store.ordered[sold.ID] = true
	router := setupFoodRouter(store, adminPrincipal())

	rr := doRequest(t, router, "DELETE", "/stalls/items/"+fresh.ID.String(), nil)
	assertStatus(t, rr, http.StatusOK)
	if _, ok := store.foods[fresh.ID]; ok {
		t.Error("item not deleted")
	}

	rr = doRequest(t, router, "DELETE", "/stalls/items/"+sold.ID.String(), nil)
	assertStatus(t, rr, http.StatusConflict)

	rr = doRequest(t, router, "DELETE", "/stalls/items/"+uuid.New().String(), nil)
	assertStatus(t, rr, http.StatusNotFound)
	assertMessage(t, rr, "Item not found")
}
