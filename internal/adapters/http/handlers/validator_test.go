package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	SetupValidator() // Ensure validators are registered
}

// ============================================
// Test Custom Validators
// ============================================

func TestValidateMoneyAmount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type TestRequest struct {
		Amount string `json:"amount" binding:"required,money_amount"`
	}

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req TestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{})
	})

	t.Run("ValidAmounts", func(t *testing.T) {
		validAmounts := []string{"100", "100.5", "100.50", "0.01", "1000000.99", "0"}
		for _, amount := range validAmounts {
			body, _ := json.Marshal(TestRequest{Amount: amount})
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code, "Amount %s should be valid", amount)
		}
	})

	t.Run("InvalidAmounts", func(t *testing.T) {
		invalidAmounts := []string{"-100", "abc", "100.123", "100.", ".50", "10,50", ""}
		for _, amount := range invalidAmounts {
			body, _ := json.Marshal(TestRequest{Amount: amount})
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, "Amount %s should be invalid", amount)
		}
	})
}

func TestValidateAccountAmount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type TestRequest struct {
		Amount string `json:"amount" binding:"required,account_amount"`
	}

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req TestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{})
	})

	t.Run("ValidAmounts", func(t *testing.T) {
		validAmounts := []string{"10000", "10000.5", "10000.00000000", "0.00000001"}
		for _, amount := range validAmounts {
			body, _ := json.Marshal(TestRequest{Amount: amount})
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code, "Amount %s should be valid", amount)
		}
	})

	t.Run("InvalidAmounts", func(t *testing.T) {
		invalidAmounts := []string{"-100", "abc", "100.000000001", "100.", ""}
		for _, amount := range invalidAmounts {
			body, _ := json.Marshal(TestRequest{Amount: amount})
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, "Amount %s should be invalid", amount)
		}
	})
}

func TestValidateISODate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type TestRequest struct {
		Date string `json:"date" binding:"required,iso_date"`
	}

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req TestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{})
	})

	t.Run("ValidDates", func(t *testing.T) {
		validDates := []string{"2023-06-15", "2024-02-29", "1999-12-31", "2023-01-01"}
		for _, date := range validDates {
			body, _ := json.Marshal(TestRequest{Date: date})
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code, "Date %s should be valid", date)
		}
	})

	t.Run("InvalidDates", func(t *testing.T) {
		// Невалидны и кривые форматы, и несуществующие календарные даты
		invalidDates := []string{"15-06-2023", "2023/06/15", "2023-13-01", "2023-02-30", "2023-6-5", ""}
		for _, date := range invalidDates {
			body, _ := json.Marshal(TestRequest{Date: date})
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, "Date %s should be invalid", date)
		}
	})
}

// ============================================
// Test Pagination
// ============================================

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newContext := func(target string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		return c
	}

	t.Run("DefaultValues", func(t *testing.T) {
		c := newContext("/test")

		params := ParsePagination(c, 50)

		assert.Equal(t, 0, params.Offset)
		assert.Equal(t, 50, params.Limit)
	})

	t.Run("CustomValues", func(t *testing.T) {
		c := newContext("/test?offset=40&limit=25")

		params := ParsePagination(c, 50)

		assert.Equal(t, 40, params.Offset)
		assert.Equal(t, 25, params.Limit)
	})

	t.Run("InvalidOffset_UsesDefault", func(t *testing.T) {
		c := newContext("/test?offset=abc")

		params := ParsePagination(c, 50)

		assert.Equal(t, 0, params.Offset)
	})

	t.Run("NegativeOffset_UsesDefault", func(t *testing.T) {
		c := newContext("/test?offset=-10")

		params := ParsePagination(c, 50)

		assert.Equal(t, 0, params.Offset)
	})

	t.Run("ZeroLimit_UsesDefault", func(t *testing.T) {
		c := newContext("/test?limit=0")

		params := ParsePagination(c, 30)

		assert.Equal(t, 30, params.Limit)
	})

	t.Run("ExceedsMaxLimit_UsesDefault", func(t *testing.T) {
		c := newContext("/test?limit=500")

		params := ParsePagination(c, 30)

		assert.Equal(t, 30, params.Limit)
	})

	t.Run("MaxLimitAccepted", func(t *testing.T) {
		c := newContext("/test?limit=100")

		params := ParsePagination(c, 30)

		assert.Equal(t, 100, params.Limit)
	})
}

func TestBuildMeta(t *testing.T) {
	params := PaginationParams{Offset: 40, Limit: 20}
	meta := BuildMeta(params, 17)

	assert.Equal(t, 40, meta.Offset)
	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 17, meta.Count)
}

// ============================================
// Test Bind Functions
// ============================================

func TestBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type TestRequest struct {
		Amount string `json:"amount" binding:"required,money_amount"`
		Key    string `json:"key" binding:"required,max=255"`
	}

	t.Run("Success", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		body := []byte(`{"amount":"100.50","key":"transfer-1"}`)
		c.Request = httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
		c.Request.Header.Set("Content-Type", "application/json")

		var req TestRequest
		result := BindJSON(c, &req)

		assert.True(t, result)
		assert.Equal(t, "100.50", req.Amount)
	})

	t.Run("ValidationError", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := []byte(`{"amount":"100.50"}`) // Missing key
		c.Request = httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
		c.Request.Header.Set("Content-Type", "application/json")

		var req TestRequest
		result := BindJSON(c, &req)

		assert.False(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := []byte(`{"amount":`)
		c.Request = httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
		c.Request.Header.Set("Content-Type", "application/json")

		var req TestRequest
		result := BindJSON(c, &req)

		assert.False(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBindURI(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type URIParams struct {
		ID string `uri:"id" binding:"required,uuid"`
	}

	t.Run("Success", func(t *testing.T) {
		router := gin.New()
		router.GET("/wallets/:id", func(c *gin.Context) {
			var params URIParams
			if BindURI(c, &params) {
				c.JSON(200, gin.H{"id": params.ID})
			}
		})

		req := httptest.NewRequest(http.MethodGet, "/wallets/550e8400-e29b-41d4-a716-446655440000", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("InvalidUUID", func(t *testing.T) {
		router := gin.New()
		router.GET("/wallets/:id", func(c *gin.Context) {
			var params URIParams
			if !BindURI(c, &params) {
				return
			}
			c.JSON(200, gin.H{})
		})

		req := httptest.NewRequest(http.MethodGet, "/wallets/not-a-uuid", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBindQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type QueryParams struct {
		Status string `form:"status" binding:"required"`
		Offset int    `form:"offset" binding:"min=0"`
	}

	t.Run("Success", func(t *testing.T) {
		router := gin.New()
		router.GET("/test", func(c *gin.Context) {
			var params QueryParams
			if BindQuery(c, &params) {
				c.JSON(200, gin.H{"status": params.Status, "offset": params.Offset})
			}
		})

		req := httptest.NewRequest(http.MethodGet, "/test?status=completed&offset=20", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("MissingRequired", func(t *testing.T) {
		router := gin.New()
		router.GET("/test", func(c *gin.Context) {
			var params QueryParams
			if !BindQuery(c, &params) {
				return
			}
			c.JSON(200, gin.H{})
		})

		req := httptest.NewRequest(http.MethodGet, "/test?offset=1", nil) // missing status
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"0", 0, true},
		{"1", 1, true},
		{"10", 10, true},
		{"123", 123, true},
		{"999", 999, true},
		{"abc", 0, false},
		{"12a", 0, false},
		{"-5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, ok := parseInt(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetValidationMessage(t *testing.T) {
	// Проверяем сообщения через реальные ошибки биндинга
	gin.SetMode(gin.TestMode)

	type TestRequest struct {
		Key    string `json:"key" binding:"required,max=10"`
		Amount string `json:"amount" binding:"required,money_amount"`
		Date   string `json:"date" binding:"required,iso_date"`
	}

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req TestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationErrors(c, err)
			return
		}
		c.JSON(200, gin.H{})
	})

	t.Run("RequiredField", func(t *testing.T) {
		body := []byte(`{"amount":"100","date":"2023-06-15"}`)
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "required")
	})

	t.Run("MaxLength", func(t *testing.T) {
		body := []byte(`{"key":"this-key-is-way-too-long","amount":"100","date":"2023-06-15"}`)
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "too long")
	})

	t.Run("MoneyAmountMessage", func(t *testing.T) {
		body := []byte(`{"key":"k","amount":"10.123","date":"2023-06-15"}`)
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "decimal")
	})

	t.Run("ISODateMessage", func(t *testing.T) {
		body := []byte(`{"key":"k","amount":"100","date":"junk"}`)
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ISO format")
	})
}
