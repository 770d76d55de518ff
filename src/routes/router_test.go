package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-ops/src/handlers"
	"clinic-ops/src/middleware"
	"clinic-ops/src/models"
	"clinic-ops/src/notify"
	"clinic-ops/src/receipt"
	"clinic-ops/src/repositories"
	"clinic-ops/src/requests"
	"clinic-ops/src/routes"
	"clinic-ops/src/services"
	"clinic-ops/src/testutil"
)

const secret = "test-secret"

type api struct {
	router *gin.Engine
	token  string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, requests.RegisterValidators())

	db := testutil.NewDB(t)
	inventoryRepo := &repositories.InventoryRepository{DB: db}
	transactionRepo := &repositories.TransactionRepository{DB: db}
	alertRepo := &repositories.AlertRepository{DB: db}

	alerts := &services.AlertService{Repo: alertRepo, Inventory: inventoryRepo, Notifier: notify.NopNotifier{}}
	observers := []services.StockObserver{alerts}
	inventory := &services.InventoryService{DB: db, Repo: inventoryRepo, Observers: observers}
	transactions := &services.TransactionService{DB: db, Repo: transactionRepo, Inventory: inventoryRepo, Observers: observers}
	billing := &services.BillingService{
		DB:         db,
		Repo:       &repositories.BillRepository{DB: db},
		Inventory:  inventoryRepo,
		Procedures: &repositories.ProcedureRepository{DB: db},
		Observers:  observers,
	}
	reports := &services.ReportService{Inventory: inventoryRepo, Transactions: transactionRepo, Alerts: alertRepo}

	log := zap.NewNop()
	router := routes.NewRouter(routes.RouterConfig{JWTSecret: secret, Log: log}, routes.Handlers{
		Inventory: &handlers.InventoryHandler{Service: inventory, Log: log},
		Transactions: &handlers.TransactionHandler{
			Service: transactions,
			Printer: &receipt.LogPrinter{Log: log},
			Clinic:  receipt.Clinic{Name: "Test Clinic", Currency: "NGN"},
			Log:     log,
		},
		Alerts:  &handlers.AlertHandler{Service: alerts, Log: log},
		Bills:   &handlers.BillHandler{Service: billing, Inventory: inventory, Log: log},
		Reports: &handlers.ReportHandler{Service: reports, Log: log},
		Health:  &handlers.HealthHandler{DB: db},
	})

	token, err := middleware.SignToken(secret, "clinic-ops", "pharmacist", time.Hour)
	require.NoError(t, err)
	return &api{router: router, token: token}
}

func (a *api) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type itemEnvelope struct {
	Data models.InventoryItem `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (a *api) createItem(t *testing.T, sku string, qty int, price int64) models.InventoryItem {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/inventory", gin.H{
		"item_name":     "Item " + sku,
		"sku":           sku,
		"category":      "medication",
		"quantity":      qty,
		"unit_price":    price / 2,
		"selling_price": price,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp itemEnvelope
	decode(t, w, &resp)
	return resp.Data
}

// ============ TEST SCENARIO 1: AUTHENTICATION ============
func TestAuthentication(t *testing.T) {
	a := newAPI(t)

	t.Run("SC1: Health endpoints are public", func(t *testing.T) {
		anon := &api{router: a.router}
		w := anon.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		w = anon.do(t, http.MethodGet, "/api/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("SC2: Missing token is rejected", func(t *testing.T) {
		anon := &api{router: a.router}
		w := anon.do(t, http.MethodGet, "/api/inventory", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body errorBody
		decode(t, w, &body)
		assert.Equal(t, "Authorization is required", body.Error)
	})

	t.Run("SC3: Token signed with another secret is rejected", func(t *testing.T) {
		forged, err := middleware.SignToken("other-secret", "clinic-ops", "mallory", time.Hour)
		require.NoError(t, err)
		w := (&api{router: a.router, token: forged}).do(t, http.MethodGet, "/api/inventory", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("SC4: Valid token passes and echoes the request id", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/inventory", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})
}

// ============ TEST SCENARIO 2: POS FLOW ============
func TestPOSFlow(t *testing.T) {
	a := newAPI(t)
	itemA := a.createItem(t, "SKU-A", 10, 100)
	itemB := a.createItem(t, "SKU-B", 1, 50)

	var txn models.Transaction

	t.Run("SC1: Checkout returns 201 with the recorded actor", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/pos/checkout", gin.H{
			"items": []gin.H{
				{"item_id": itemA.ID, "quantity": 2},
				{"item_id": itemB.ID, "quantity": 1},
			},
			"patient_name": "Ada Obi",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Message string             `json:"message"`
			Data    models.Transaction `json:"data"`
		}
		decode(t, w, &resp)
		txn = resp.Data
		assert.Equal(t, "Transaction completed successfully", resp.Message)
		assert.True(t, txn.TotalAmount.Equal(decimal.NewFromInt(250)))
		assert.Equal(t, "pharmacist", txn.CreatedBy)
	})

	t.Run("SC2: Stock was decremented", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/inventory/"+itemA.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp itemEnvelope
		decode(t, w, &resp)
		assert.Equal(t, 8, resp.Data.Quantity)
	})

	t.Run("SC3: Overselling is a 400 with the stock message", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/pos/checkout", gin.H{
			"items": []gin.H{{"item_id": itemB.ID, "quantity": 1}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body errorBody
		decode(t, w, &body)
		assert.Equal(t, "Insufficient stock for Item SKU-B. Available: 0, Requested: 1", body.Error)
	})

	t.Run("SC4: Cancel restores stock and a second cancel is rejected", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/transactions/"+txn.TransactionID+"/cancel", gin.H{"reason": "duplicate"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = a.do(t, http.MethodPost, "/api/transactions/"+txn.TransactionID+"/cancel", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = a.do(t, http.MethodGet, "/api/inventory/"+itemB.ID.String(), nil)
		var resp itemEnvelope
		decode(t, w, &resp)
		assert.Equal(t, 1, resp.Data.Quantity)
	})

	t.Run("SC5: Print marks the receipt", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/transactions/"+txn.ID.String()+"/print", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = a.do(t, http.MethodGet, "/api/transactions/"+txn.ID.String(), nil)
		var resp struct {
			Data models.Transaction `json:"data"`
		}
		decode(t, w, &resp)
		assert.True(t, resp.Data.ReceiptPrinted)
	})

	t.Run("SC6: Unknown transaction is a 404", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/transactions/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("SC7: Invalid cart body is a 400", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/pos/checkout", gin.H{"items": []gin.H{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SC8: Cancel reads chunked bodies and accepts an empty one", func(t *testing.T) {
		checkout := func() models.Transaction {
			w := a.do(t, http.MethodPost, "/api/pos/checkout", gin.H{
				"items": []gin.H{{"item_id": itemA.ID, "quantity": 1}},
			})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			var resp struct {
				Data models.Transaction `json:"data"`
			}
			decode(t, w, &resp)
			return resp.Data
		}
		first, second := checkout(), checkout()

		// A reader without a known length is sent with ContentLength -1
		body := io.MultiReader(strings.NewReader(`{"reason":"patient left"}`))
		req := httptest.NewRequest(http.MethodPost, "/api/transactions/"+first.TransactionID+"/cancel", body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.token)
		require.Equal(t, int64(-1), req.ContentLength)
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data models.Transaction `json:"data"`
		}
		decode(t, w, &resp)
		require.NotNil(t, resp.Data.CancellationReason)
		assert.Equal(t, "patient left", *resp.Data.CancellationReason)

		w = a.do(t, http.MethodPost, "/api/transactions/"+second.TransactionID+"/cancel", nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

// ============ TEST SCENARIO 3: INVENTORY AND BILLING ============
func TestInventoryAndBillingEndpoints(t *testing.T) {
	a := newAPI(t)
	item := a.createItem(t, "SKU-A", 20, 100)

	t.Run("SC1: Duplicate SKU is a 400", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/inventory", gin.H{
			"item_name": "Other", "sku": "SKU-A", "category": "medication",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SC2: Invalid barcode fails binding", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/inventory", gin.H{
			"item_name": "Other", "sku": "SKU-Z", "category": "medication", "barcode": "no spaces allowed",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SC3: Adjust below zero is a 400", func(t *testing.T) {
		w := a.do(t, http.MethodPatch, "/api/inventory/"+item.ID.String()+"/quantity", gin.H{"change": -50})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SC4: Bill create, pay and view", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/bills", gin.H{
			"patient_name": "Ada Obi",
			"drugs": []gin.H{
				{"drug_id": item.ID, "number_of_units": 2, "number_of_days": 2},
			},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created struct {
			Data models.Bill `json:"data"`
		}
		decode(t, w, &created)
		assert.True(t, created.Data.TotalAmount.Equal(decimal.NewFromInt(400)))

		w = a.do(t, http.MethodPatch, "/api/bills/"+created.Data.BillNumber+"/status", gin.H{"status": "PAID"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = a.do(t, http.MethodGet, "/api/inventory/"+item.ID.String(), nil)
		var resp itemEnvelope
		decode(t, w, &resp)
		assert.Equal(t, 16, resp.Data.Quantity)

		w = a.do(t, http.MethodGet, "/api/bills/"+created.Data.ID.String()+"/print?section=drugs", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var view struct {
			Data services.CumulativeBill `json:"data"`
		}
		decode(t, w, &view)
		assert.Len(t, view.Data.Sections, 3)

		w = a.do(t, http.MethodDelete, "/api/bills/"+created.Data.ID.String(), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SC5: Inventory report as a workbook", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/reports/inventory?format=xlsx", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
		assert.NotEmpty(t, w.Body.Bytes())

		w = a.do(t, http.MethodGet, "/api/reports/inventory?format=pdf", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SC6: Dashboard", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/reports/dashboard", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("SC7: Procedure catalog accepts new entries once", func(t *testing.T) {
		body := gin.H{"name": "Nebulization", "standard_price": 3500, "category": "Nursing"}
		w := a.do(t, http.MethodPost, "/api/procedures", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = a.do(t, http.MethodPost, "/api/procedures", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = a.do(t, http.MethodPost, "/api/procedures", gin.H{"standard_price": 10})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = a.do(t, http.MethodGet, "/api/procedures?search=nebul", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []models.Procedure `json:"data"`
		}
		decode(t, w, &resp)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Nebulization", resp.Data[0].Name)
	})
}
