package e2e

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const refreshCookie = "refresh_token"

var dbSeq atomic.Int64

// BackendUser is the user row of the fake auth backend.
type BackendUser struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;size:255"`
	Name         string `gorm:"size:255"`
	PasswordHash string `gorm:"size:255"`
	Role         string `gorm:"size:32"`
	CreatedAt    time.Time
}

// Backend is an in-process replica of the auth REST surface the agent talks
// to: register, login, cookie-based refresh and bearer verification. State
// lives in an in-memory sqlite database plus a refresh-token table held in
// memory, which is enough to exercise every client-side lifecycle path.
type Backend struct {
	Server *httptest.Server
	DB     *gorm.DB

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu       sync.Mutex
	sessions map[string]uint // refresh token -> user id
	seq      int
}

// NewBackend starts the fake backend on an httptest server.
func NewBackend(t testingT) *Backend {
	t.Helper()

	gin.SetMode(gin.TestMode)

	// a named in-memory database keeps each test isolated while surviving
	// gorm's connection pooling
	dsn := "file:e2e" + strconv.FormatInt(dbSeq.Add(1), 10) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&BackendUser{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	b := &Backend{
		DB:         db,
		secret:     []byte("e2e-backend-secret"),
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		sessions:   map[string]uint{},
	}

	r := gin.New()
	r.POST("/auth/register", b.register)
	r.POST("/auth/login", b.login)
	r.POST("/auth/refresh-token", b.refresh)
	r.GET("/auth/verify", b.verify)

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// testingT is the slice of *testing.T the backend needs, so helpers can be
// shared between tests and benchmarks.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Cleanup(func())
}

// Seed inserts a user directly, bypassing the registration endpoint.
func (b *Backend) Seed(t testingT, email, password, role string) *BackendUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	u := &BackendUser{Email: email, Name: "Seeded User", PasswordHash: string(hash), Role: role}
	if err := b.DB.Create(u).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u
}

// MintToken issues an access token directly, optionally already expired, so
// tests can place arbitrary tokens into the agent's store.
func (b *Backend) MintToken(t testingT, u *BackendUser, ttl time.Duration) string {
	t.Helper()
	tok, err := b.signToken(u, ttl)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return tok
}

// RevokeRefreshTokens invalidates every refresh session, so the next refresh
// attempt fails like a server-side logout would make it.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	b.sessions = map[string]uint{}
	b.mu.Unlock()
}

func (b *Backend) signToken(u *BackendUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(u.ID), 10),
		"role": u.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func (b *Backend) issueSession(c *gin.Context, u *BackendUser) (string, error) {
	access, err := b.signToken(u, b.accessTTL)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.seq++
	refresh := "rt_" + strconv.Itoa(b.seq) + "_" + strconv.FormatUint(uint64(u.ID), 10)
	b.sessions[refresh] = u.ID
	b.mu.Unlock()

	c.SetCookie(refreshCookie, refresh, int(b.refreshTTL.Seconds()), "/", "", false, true)
	return access, nil
}

func userJSON(u *BackendUser) gin.H {
	return gin.H{
		"id":             strconv.FormatUint(uint64(u.ID), 10),
		"email":          u.Email,
		"name":           u.Name,
		"role":           u.Role,
		"email_verified": true,
	}
}

func (b *Backend) register(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password" binding:"required,min=6"`
		PasswordConfirm string `json:"passwordConfirm" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Password != req.PasswordConfirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		return
	}

	var existing BackendUser
	if err := b.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hashing failed"})
		return
	}
	u := &BackendUser{Email: req.Email, Name: req.Name, PasswordHash: string(hash), Role: "user"}
	if err := b.DB.Create(u).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	access, err := b.issueSession(c, u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": access, "user": userJSON(u)})
}

func (b *Backend) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var u BackendUser
	if err := b.DB.Where("email = ?", req.Email).First(&u).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	access, err := b.issueSession(c, &u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "user": userJSON(&u)})
}

func (b *Backend) refresh(c *gin.Context) {
	refresh, err := c.Cookie(refreshCookie)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}

	b.mu.Lock()
	uid, ok := b.sessions[refresh]
	b.mu.Unlock()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token revoked"})
		return
	}

	var u BackendUser
	if err := b.DB.First(&u, uid).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown session user"})
		return
	}

	access, err := b.signToken(&u, b.accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "user": userJSON(&u)})
}

func (b *Backend) verify(c *gin.Context) {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) <= len(prefix) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	raw := header[len(prefix):]

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	claims, _ := parsed.Claims.(jwt.MapClaims)
	sub, _ := claims["sub"].(string)
	uid, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "malformed subject"})
		return
	}

	var u BackendUser
	if err := b.DB.First(&u, uint(uid)).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user": userJSON(&u)})
}
