package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"book-review/internal/domain"
	"book-review/internal/service"
	"book-review/internal/storage"
)

// presigned profile/cover URLs stay valid long enough for a page view
const imageURLTTL = 15 * time.Minute

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	books   service.BookService
	reviews service.ReviewService
	store   storage.Service
	logger  *logrus.Logger
}

func NewHandler(
	users service.UserService,
	books service.BookService,
	reviews service.ReviewService,
	store storage.Service,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		users:   users,
		books:   books,
		reviews: reviews,
		store:   store,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(requestLogger(h.logger))

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.register)
			authGroup.POST("/login", h.login)
			authGroup.POST("/forgot-password", h.forgotPassword)
			authGroup.POST("/reset-password", h.resetPassword)
			authGroup.GET("/verify", authRequired(h.users), h.verify)
		}

		usersGroup := api.Group("/users", authRequired(h.users))
		{
			usersGroup.GET("/profile", h.getProfile)
			usersGroup.PUT("/profile", h.updateProfile)
			usersGroup.POST("/profile/image", h.uploadProfileImage)
			usersGroup.PUT("/email", h.changeEmail)
			usersGroup.PUT("/password", h.changePassword)
			usersGroup.DELETE("", h.deleteAccount)
		}

		booksGroup := api.Group("/books")
		{
			booksGroup.GET("", h.listBooks)
			booksGroup.GET("/:id", h.getBook)
		}

		reviewsGroup := api.Group("/reviews")
		{
			reviewsGroup.POST("", authRequired(h.users), h.createReview)
			reviewsGroup.GET("/book/:bookId", h.listBookReviews)
			reviewsGroup.GET("/user/:userId", h.listUserReviews)
			reviewsGroup.PUT("/:id", authRequired(h.users), h.updateReview)
			reviewsGroup.DELETE("/:id", authRequired(h.users), h.deleteReview)
		}

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusAccepted, gin.H{"ok": "ok"})
		})
	}
}

type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	DisplayName     string `json:"displayName" binding:"required,min=2,max=50"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"omitempty,eqfield=Password"`
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"required,min=2,max=50"`
}

type changeEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type createReviewRequest struct {
	BookID  int64  `json:"bookId" binding:"required"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Content string `json:"content" binding:"required,min=10,max=1000"`
}

type updateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Content string `json:"content" binding:"required,min=10,max=1000"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !usernamePattern.MatchString(strings.TrimSpace(req.Username)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 3-20 letters, digits or underscores"})
		return
	}

	profile, err := h.users.Register(c.Request.Context(), req.Username, req.DisplayName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateCredential) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already in use"})
			return
		}
		h.serverError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": h.profileToResponse(c, profile)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, profile, err := h.users.Login(c.Request.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.serverError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  h.profileToResponse(c, profile),
	})
}

// forgotPassword answers the same way whether or not the email exists.
func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.logger.Warnf("forgot password: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "if the email exists, a reset link has been sent"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset token"})
			return
		}
		h.serverError(c, "reset password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password has been reset"})
}

func (h *Handler) verify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": h.profileToResponse(c, currentUser(c))})
}

func (h *Handler) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": h.profileToResponse(c, currentUser(c))})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c).ID, req.DisplayName)
	if err != nil {
		h.userError(c, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.profileToResponse(c, profile)})
}

func (h *Handler) uploadProfileImage(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image storage not configured"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image must be jpg or png"})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.serverError(c, "open upload", err)
		return
	}
	defer src.Close()

	key := fmt.Sprintf("profiles/%s%s", uuid.NewString(), ext)
	contentType := file.Header.Get("Content-Type")
	if err := h.store.UploadObject(c.Request.Context(), key, contentType, src); err != nil {
		h.serverError(c, "upload profile image", err)
		return
	}

	profile, err := h.users.UpdateProfileImage(c.Request.Context(), currentUser(c).ID, key)
	if err != nil {
		h.userError(c, "update profile image", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.profileToResponse(c, profile)})
}

func (h *Handler) changeEmail(c *gin.Context) {
	var req changeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.users.ChangeEmail(c.Request.Context(), currentUser(c).ID, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateCredential) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already in use"})
			return
		}
		h.userError(c, "change email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.profileToResponse(c, profile)})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), currentUser(c).ID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrWrongPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
			return
		}
		h.userError(c, "change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.users.DeleteAccount(c.Request.Context(), currentUser(c).ID); err != nil {
		h.userError(c, "delete account", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

func (h *Handler) listBooks(c *gin.Context) {
	page, limit := pageQuery(c, 12)
	books, total, err := h.books.ListBooks(c.Request.Context(), page, limit)
	if err != nil {
		h.serverError(c, "list books", err)
		return
	}

	resp := make([]BookResponse, len(books))
	for i := range books {
		resp[i] = bookToResponse(books[i])
	}
	c.JSON(http.StatusOK, gin.H{"books": resp, "total": total, "page": page, "limit": limit})
}

func (h *Handler) getBook(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	book, err := h.books.GetBook(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		h.serverError(c, "get book", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": bookToResponse(*book)})
}

func (h *Handler) createReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), currentUser(c).ID, req.BookID, req.Rating, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		case errors.Is(err, service.ErrAlreadyReviewed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "you have already reviewed this book"})
		default:
			h.serverError(c, "create review", err)
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": reviewToResponse(*review)})
}

func (h *Handler) listBookReviews(c *gin.Context) {
	bookID, err := parseID(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	page, limit := pageQuery(c, 10)
	reviews, total, err := h.reviews.GetBookReviews(c.Request.Context(), bookID, page, limit)
	if err != nil {
		h.serverError(c, "list book reviews", err)
		return
	}
	c.JSON(http.StatusOK, reviewPage(reviews, total, page, limit))
}

func (h *Handler) listUserReviews(c *gin.Context) {
	userID, err := parseID(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	page, limit := pageQuery(c, 10)
	reviews, total, err := h.reviews.GetUserReviews(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.serverError(c, "list user reviews", err)
		return
	}
	c.JSON(http.StatusOK, reviewPage(reviews, total, page, limit))
}

func (h *Handler) updateReview(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})
		return
	}

	var req updateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.reviews.UpdateReview(c.Request.Context(), id, currentUser(c).ID, req.Rating, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
			return
		}
		h.serverError(c, "update review", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": reviewToResponse(*review)})
}

func (h *Handler) deleteReview(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})
		return
	}

	if err := h.reviews.DeleteReview(c.Request.Context(), id, currentUser(c).ID); err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
			return
		}
		h.serverError(c, "delete review", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type ProfileResponse struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	Email           string `json:"email"`
	ProfileImage    string `json:"profileImage"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

type BookResponse struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Description   string  `json:"description,omitempty"`
	CoverImage    string  `json:"coverImage"`
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

type ReviewResponse struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"userId"`
	BookID    int64             `json:"bookId"`
	Rating    int               `json:"rating"`
	Content   string            `json:"content"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
	Reviewer  *ReviewerResponse `json:"reviewer,omitempty"`
	Book      *BookResponse     `json:"book,omitempty"`
}

type ReviewerResponse struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	ProfileImage string `json:"profileImage"`
}

func (h *Handler) profileToResponse(c *gin.Context, profile *domain.Profile) ProfileResponse {
	if profile == nil {
		return ProfileResponse{}
	}
	resp := ProfileResponse{
		ID:           profile.ID,
		Username:     profile.Username,
		DisplayName:  profile.DisplayName,
		Email:        profile.Email,
		ProfileImage: profile.ProfileImage,
	}
	if h.store != nil && strings.HasPrefix(profile.ProfileImage, "profiles/") {
		if url, err := h.store.ObjectURL(c.Request.Context(), profile.ProfileImage, imageURLTTL); err == nil {
			resp.ProfileImageURL = url
		} else {
			h.logger.Warnf("presign profile image: %v", err)
		}
	}
	return resp
}

func bookToResponse(book domain.Book) BookResponse {
	return BookResponse{
		ID:            book.ID,
		Title:         book.Title,
		Author:        book.Author,
		Description:   book.Description,
		CoverImage:    book.CoverImage,
		AverageRating: book.AverageRating,
		TotalReviews:  book.TotalReviews,
	}
}

func reviewToResponse(review domain.Review) ReviewResponse {
	resp := ReviewResponse{
		ID:        review.ID,
		UserID:    review.UserID,
		BookID:    review.BookID,
		Rating:    review.Rating,
		Content:   review.Content,
		CreatedAt: review.CreatedAt.Format(time.RFC3339),
		UpdatedAt: review.UpdatedAt.Format(time.RFC3339),
	}
	if review.Reviewer != nil {
		resp.Reviewer = &ReviewerResponse{
			ID:           review.Reviewer.ID,
			Username:     review.Reviewer.Username,
			DisplayName:  review.Reviewer.DisplayName,
			ProfileImage: review.Reviewer.ProfileImage,
		}
	}
	if review.Book != nil {
		book := bookToResponse(*review.Book)
		resp.Book = &book
	}
	return resp
}

func reviewPage(reviews []domain.Review, total, page, limit int) gin.H {
	resp := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		resp[i] = reviewToResponse(reviews[i])
	}
	return gin.H{"reviews": resp, "total": total, "page": page, "limit": limit}
}

func pageQuery(c *gin.Context, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// userError maps principal-related failures, falling back to a server error.
func (h *Handler) userError(c *gin.Context, op string, err error) {
	if errors.Is(err, service.ErrPrincipalNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	h.serverError(c, op, err)
}

// serverError hides internals from the caller; detail goes to the log only.
func (h *Handler) serverError(c *gin.Context, op string, err error) {
	h.logger.Errorf("%s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
