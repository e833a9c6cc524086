package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mihaimyh/paygate/pkg/account"
	"github.com/mihaimyh/paygate/pkg/billing"
	"github.com/mihaimyh/paygate/pkg/entitlement"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createPreferenceRequest struct {
	UserID    int64  `json:"userId"`
	UserEmail string `json:"userEmail"`
}

type confirmPaymentRequest struct {
	UserID    int64  `json:"userId"`
	PaymentID string `json:"paymentId"`
}

type markAsPaidRequest struct {
	Email string `json:"email"`
}

// userResponse is the public view of a user. The password hash never leaves
// the server.
type userResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	IsPaid bool   `json:"isPaid"`
}

func toUserResponse(u *account.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, IsPaid: u.Paid}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	user, err := s.config.Accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"message": "all fields are required"})
		case errors.Is(err, account.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"message": "email is already registered"})
		default:
			s.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	user, err := s.config.Accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
			return
		}
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) handleCreatePreference(c *gin.Context) {
	var req createPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.UserID == 0 || req.UserEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "user information is required for payment"})
		return
	}

	pref, err := s.config.Coordinator.CreateIntent(c.Request.Context(), req.UserID, req.UserEmail)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		case errors.Is(err, billing.ErrProviderUnavailable):
			c.JSON(http.StatusInternalServerError, gin.H{"message": "payment provider unavailable"})
		default:
			s.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": pref.ID, "init_point": pref.InitPoint})
}

func (s *Server) handleConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "userId is required"})
		return
	}

	err := s.config.Coordinator.ConfirmFromClient(c.Request.Context(), req.UserID, req.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		case errors.Is(err, entitlement.ErrPaymentNotApproved):
			c.JSON(http.StatusConflict, gin.H{"message": "payment is not approved"})
		case errors.Is(err, billing.ErrProviderUnavailable):
			c.JSON(http.StatusInternalServerError, gin.H{"message": "payment provider unavailable"})
		default:
			s.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment confirmed"})
}

func (s *Server) handleMarkAsPaid(c *gin.Context) {
	var req markAsPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email is required"})
		return
	}

	if err := s.config.Coordinator.MarkPaidByEmail(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
			return
		}
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user marked as paid"})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.config.Logger.Error().
		Str("request_id", c.GetString("request_id")).
		Err(err).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}
