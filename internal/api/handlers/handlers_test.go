package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DFBlok/market-link-app/internal/api/handlers"
	"github.com/DFBlok/market-link-app/internal/api/middleware"
	"github.com/DFBlok/market-link-app/internal/auth"
	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/DFBlok/market-link-app/internal/utils"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.JwtSecret = testSecret
	return cfg
}

func tokenFor(t *testing.T, id utils.SixID, userType models.UserType) string {
	t.Helper()
	user := &models.User{Base: models.Base{ID: id}, UserType: userType, Role: models.RoleUser}
	token, err := auth.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Auth ---

func TestRestAuthHandler_Register(t *testing.T) {
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestAuthHandler(testConfig(), mockUserSvc)
	r := gin.New()
	r.POST("/auth/register", handler.Register)

	in := services.RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1", UserType: "manufacturer"}
	user := &models.User{Base: models.NewBase(), Name: "Ada", Email: "ada@example.com", PasswordHash: "$2a$hash", UserType: models.UserTypeManufacturer}
	mockUserSvc.On("Register", mock.Anything, in).Return(user, nil).Once()

	w := doJSON(t, r, http.MethodPost, "/auth/register", in, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Registration successful", body["message"])
	u := body["user"].(map[string]interface{})
	assert.Equal(t, user.ID.String(), u["id"])
	assert.NotContains(t, w.Body.String(), "$2a$hash", "hash is never serialized")

	mockUserSvc.On("Register", mock.Anything, in).Return(nil, services.ErrEmailExists).Once()
	w = doJSON(t, r, http.MethodPost, "/auth/register", in, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User with this email already exists", decode(t, w)["error"])
	mockUserSvc.AssertExpectations(t)
}

func TestRestAuthHandler_Login(t *testing.T) {
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestAuthHandler(testConfig(), mockUserSvc)
	r := gin.New()
	r.POST("/auth/login", handler.Login)

	user := &models.User{Base: models.NewBase(), Name: "Ada", UserType: models.UserTypeSupplier, Role: models.RoleUser}
	mockUserSvc.On("Authenticate", mock.Anything, "ada@example.com", "secret1").Return(user, nil)
	mockUserSvc.On("Authenticate", mock.Anything, "ada@example.com", "wrong").Return(nil, nil)

	w := doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decode(t, w)["token"].(string)
	claims, err := auth.ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, string(models.UserTypeSupplier), claims.UserType)

	w = doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["error"])
}

func TestRestAuthHandler_Me(t *testing.T) {
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestAuthHandler(testConfig(), mockUserSvc)
	r := gin.New()
	r.GET("/auth/me", middleware.AuthMiddleware(testSecret), handler.Me)

	id := utils.NewSixID()
	mockUserSvc.On("FindByID", mock.Anything, id).Return(&models.User{Base: models.Base{ID: id}, Name: "Ada"}, nil)

	w := doJSON(t, r, http.MethodGet, "/auth/me", nil, tokenFor(t, id, models.UserTypeManufacturer))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", decode(t, w)["user"].(map[string]interface{})["name"])

	w = doJSON(t, r, http.MethodGet, "/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Products ---

func productRouter(svc services.IProductService) *gin.Engine {
	handler := handlers.NewRestProductHandler(svc)
	r := gin.New()
	r.GET("/products", handler.ListProducts)
	supplier := r.Group("/", middleware.AuthMiddleware(testSecret), middleware.SupplierMiddleware())
	supplier.POST("/products", handler.CreateProduct)
	supplier.PUT("/products/:id", handler.UpdateProduct)
	supplier.DELETE("/products/:id", handler.DeleteProduct)
	supplier.POST("/products/:id/image-upload", handler.RequestImageUpload)
	return r
}

func TestRestProductHandler_List(t *testing.T) {
	mockSvc := new(MockProductService)
	r := productRouter(mockSvc)
	supplierID := utils.NewSixID()
	mockSvc.On("ListProducts", mock.Anything, supplierID).Return([]models.Product{{Name: "Steel"}}, nil)

	w := doJSON(t, r, http.MethodGet, "/products?supplierId="+supplierID.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["products"], 1)

	w = doJSON(t, r, http.MethodGet, "/products", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Supplier ID is required", decode(t, w)["error"])
}

func TestRestProductHandler_CreateUsesTokenSupplier(t *testing.T) {
	mockSvc := new(MockProductService)
	r := productRouter(mockSvc)
	supplierID := utils.NewSixID()
	fields := models.ProductFields{Name: "Steel", Description: "d", Category: "c", Price: "p", LeadTime: "l", MinOrderQuantity: "m"}
	mockSvc.On("CreateProduct", mock.Anything, supplierID, fields).Return(&models.Product{Base: models.NewBase(), SupplierID: supplierID, Name: "Steel"}, nil).Once()

	token := tokenFor(t, supplierID, models.UserTypeSupplier)
	w := doJSON(t, r, http.MethodPost, "/products", fields, token)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Product created successfully", decode(t, w)["message"])

	body := map[string]interface{}{"name": "Steel", "supplierId": utils.NewSixID().String()}
	w = doJSON(t, r, http.MethodPost, "/products", body, token)
	assert.Equal(t, http.StatusNotFound, w.Code, "a foreign supplierId is rejected")

	w = doJSON(t, r, http.MethodPost, "/products", fields, tokenFor(t, utils.NewSixID(), models.UserTypeManufacturer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRestProductHandler_DeleteMismatchedSupplier(t *testing.T) {
	mockSvc := new(MockProductService)
	r := productRouter(mockSvc)
	supplierID, productID := utils.NewSixID(), utils.NewSixID()
	mockSvc.On("DeleteProduct", mock.Anything, productID, supplierID).
		Return(&services.Error{Kind: services.KindNotFoundOrUnauthorized, Message: "Product not found or unauthorized"})

	w := doJSON(t, r, http.MethodDelete, "/products/"+productID.String(), nil, tokenFor(t, supplierID, models.UserTypeSupplier))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found or unauthorized", decode(t, w)["error"])

	w = doJSON(t, r, http.MethodDelete, "/products/not-an-id", nil, tokenFor(t, supplierID, models.UserTypeSupplier))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestProductHandler_InternalErrorsAreGeneric(t *testing.T) {
	mockSvc := new(MockProductService)
	r := productRouter(mockSvc)
	supplierID, productID := utils.NewSixID(), utils.NewSixID()
	mockSvc.On("RequestImageUpload", mock.Anything, productID, supplierID, "a.png", "image/png").
		Return(nil, errors.New("s3: connection refused"))

	w := doJSON(t, r, http.MethodPost, "/products/"+productID.String()+"/image-upload",
		map[string]string{"filename": "a.png", "contentType": "image/png"}, tokenFor(t, supplierID, models.UserTypeSupplier))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "connection refused")
}

// --- Inquiries ---

func inquiryRouter(svc services.IInquiryService) *gin.Engine {
	handler := handlers.NewRestInquiryHandler(svc)
	r := gin.New()
	r.POST("/inquiries", middleware.OptionalAuthMiddleware(testSecret), handler.SubmitInquiry)
	authed := r.Group("/", middleware.AuthMiddleware(testSecret))
	authed.GET("/inquiries", handler.ListInquiries)
	supplier := authed.Group("/", middleware.SupplierMiddleware())
	supplier.POST("/inquiries/:id/respond", handler.RespondToInquiry)
	supplier.PATCH("/inquiries/:id/status", handler.UpdateInquiryStatus)
	return r
}

func TestRestInquiryHandler_SubmitGuest(t *testing.T) {
	mockSvc := new(MockInquiryService)
	r := inquiryRouter(mockSvc)
	inquiry := &models.Inquiry{Base: models.NewBase(), Status: models.InquiryStatusNew}
	mockSvc.On("SubmitInquiry", mock.Anything, mock.MatchedBy(func(in services.SubmitInquiryInput) bool {
		return in.Caller == nil && in.ManufacturerID == "guest" && in.ProductName == "Steel"
	})).Return(inquiry, nil)

	w := doJSON(t, r, http.MethodPost, "/inquiries", map[string]string{"manufacturerId": "guest", "productName": "Steel"}, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Inquiry sent successfully", body["message"])
	assert.Equal(t, "New", body["inquiry"].(map[string]interface{})["status"])
}

func TestRestInquiryHandler_ListScopesSupplier(t *testing.T) {
	mockSvc := new(MockInquiryService)
	r := inquiryRouter(mockSvc)
	supplierID := utils.NewSixID()
	pending := models.InquiryStatusNew
	want := models.InquiryFilter{SupplierID: supplierID.Ptr(), Status: &pending}
	mockSvc.On("ListInquiries", mock.Anything, want).Return([]models.Inquiry{{}, {}}, nil)

	token := tokenFor(t, supplierID, models.UserTypeSupplier)
	w := doJSON(t, r, http.MethodGet, "/inquiries?status=pending", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total"])

	w = doJSON(t, r, http.MethodGet, "/inquiries?supplierId="+utils.NewSixID().String(), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertNumberOfCalls(t, "ListInquiries", 1)
}

func TestRestInquiryHandler_RespondStatusCodes(t *testing.T) {
	mockSvc := new(MockInquiryService)
	r := inquiryRouter(mockSvc)
	supplierID, inquiryID := utils.NewSixID(), utils.NewSixID()
	token := tokenFor(t, supplierID, models.UserTypeSupplier)

	matches := func(msg string) interface{} {
		return mock.MatchedBy(func(in services.RespondInput) bool {
			return in.InquiryID == inquiryID && in.SupplierID == supplierID && in.Message == msg
		})
	}
	mockSvc.On("RespondToInquiry", mock.Anything, matches("Quote: R75000")).
		Return(&models.Inquiry{Base: models.Base{ID: inquiryID}, Status: models.InquiryStatusResponded}, nil)
	mockSvc.On("RespondToInquiry", mock.Anything, matches("Closed already")).
		Return(nil, &services.Error{Kind: services.KindInvalidStateTransition, Message: "Inquiry is closed"})
	mockSvc.On("RespondToInquiry", mock.Anything, matches("short")).
		Return(nil, &services.Error{Kind: services.KindValidation, Message: "Response message must be at least 10 characters"})

	path := "/inquiries/" + inquiryID.String() + "/respond"
	w := doJSON(t, r, http.MethodPost, path, map[string]string{"message": "Quote: R75000"}, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, path, map[string]string{"message": "Closed already"}, token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Inquiry is closed", decode(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, path, map[string]string{"message": "short"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, path, map[string]string{"message": "Quote: R75000"}, tokenFor(t, supplierID, models.UserTypeManufacturer))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRestInquiryHandler_UpdateStatus(t *testing.T) {
	mockSvc := new(MockInquiryService)
	r := inquiryRouter(mockSvc)
	supplierID, inquiryID := utils.NewSixID(), utils.NewSixID()
	mockSvc.On("UpdateInquiryStatus", mock.Anything, inquiryID, supplierID, "Closed").
		Return(&models.Inquiry{Base: models.Base{ID: inquiryID}, Status: models.InquiryStatusClosed}, nil)

	w := doJSON(t, r, http.MethodPatch, "/inquiries/"+inquiryID.String()+"/status", map[string]string{"status": "Closed"}, tokenFor(t, supplierID, models.UserTypeSupplier))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Closed", decode(t, w)["inquiry"].(map[string]interface{})["status"])
}
