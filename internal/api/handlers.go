package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"classcaptain/internal/academy"
	"classcaptain/internal/auth"
	"classcaptain/internal/domain"
	"classcaptain/internal/reconcile"
	"classcaptain/internal/validate"
)

const sessionKey = "session"

var errBadMember = errors.New("invalid id or date of birth")

func (s *Server) registerAcademy(c *gin.Context) {
	var req academy.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := s.academies.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// openSessionRequest carries the academy admin password, or the member's
// student_id / teacher_id and date of birth.
type openSessionRequest struct {
	AcademyKey  string `json:"academy_key" binding:"required"`
	Role        string `json:"role" binding:"required"`
	Password    string `json:"password"`
	Code        string `json:"code"`
	DateOfBirth string `json:"date_of_birth"`
}

func (s *Server) openSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	academyID := academy.NormalizeKey(req.AcademyKey)
	if academyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "academy_key is required"})
		return
	}
	role, err := auth.ParseRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var (
		tenant academy.Academy
		admit  func(*reconcile.Session) error
		name   string
		code   string
	)
	if role == auth.RoleAcademy {
		tenant, err = s.academies.Login(ctx, academyID, req.Password)
		if err != nil {
			writeError(c, err)
			return
		}
		name = tenant.Name
	} else {
		dob, err := domain.ParseDate(req.DateOfBirth)
		if err != nil || dob.IsZero() || strings.TrimSpace(req.Code) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code and date_of_birth are required"})
			return
		}
		tenant, err = s.academies.Lookup(ctx, academyID)
		if errors.Is(err, academy.ErrNotFound) {
			writeError(c, errBadMember)
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		admit = func(ss *reconcile.Session) error {
			switch role {
			case auth.RoleStudent:
				if st, ok := ss.StudentByCode(req.Code); ok && st.DateOfBirth.Equal(dob) {
					name, code = st.Name, st.StudentCode
					return nil
				}
			case auth.RoleTeacher:
				if tc, ok := ss.TeacherByCode(req.Code); ok && tc.DateOfBirth.Equal(dob) {
					name, code = tc.Name, tc.TeacherCode
					return nil
				}
			}
			return errBadMember
		}
	}

	userID := uuid.NewString()
	session, err := s.manager.Attach(ctx, tenant.Key, userID, admit)
	if err != nil {
		if errors.Is(err, errBadMember) {
			s.log.Warn("member login refused", "academy_id", tenant.Key, "role", role)
		}
		writeError(c, err)
		return
	}
	token, err := auth.Issue(auth.Subject{
		AcademyID: tenant.Key,
		Role:      role,
		SessionID: session.ID,
		UserID:    userID,
		Code:      code,
	}, s.opts.Issuer, s.opts.SigningKey, s.opts.AccessTTL)
	if err != nil {
		_ = s.manager.Leave(tenant.Key, session.ID, userID)
		s.log.Error("token issue failed", "academy_id", tenant.Key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	dash := session.Dashboard()
	c.JSON(http.StatusCreated, gin.H{
		"access_token": token.AccessToken,
		"expires_at":   token.ExpiresAt.Unix(),
		"session_id":   session.ID,
		"role":         role,
		"name":         name,
		"academy":      gin.H{"academy_key": tenant.Key, "name": tenant.Name},
		"collections":  session.Snapshots(),
		"counts": gin.H{
			string(domain.Students): len(dash.Students),
			string(domain.Teachers): len(dash.Teachers),
			string(domain.Batches):  len(dash.Batches),
		},
	})
}

// requireSession resolves the token's session; a closed session or a user
// who left it is 401.
func (s *Server) requireSession(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}
	session, err := s.manager.Get(claims.AcademyID, claims.SessionID, claims.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}
	c.Set(sessionKey, session)
	c.Next()
}

func sessionFrom(c *gin.Context) *reconcile.Session {
	return c.MustGet(sessionKey).(*reconcile.Session)
}

func (s *Server) closeSession(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	if err := s.manager.Leave(claims.AcademyID, claims.SessionID, claims.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) dashboard(c *gin.Context) {
	session := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"collections": session.Snapshots(),
		"data":        session.Dashboard(),
	})
}

func listRecords[T domain.Record](pick func(*reconcile.Session) *reconcile.Collection[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		col := pick(sessionFrom(c))
		c.JSON(http.StatusOK, gin.H{
			"items": col.List(),
			"mode":  col.Mode().String(),
		})
	}
}

func createRecord[T domain.Record](pick func(*reconcile.Session) *reconcile.Collection[T], draft func() T) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec := draft()
		if err := c.ShouldBindJSON(rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body: " + err.Error()})
			return
		}
		created, err := pick(sessionFrom(c)).Create(c.Request.Context(), rec)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func deleteRecord[T domain.Record](pick func(*reconcile.Session) *reconcile.Collection[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := pick(sessionFrom(c)).Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) roster(c *gin.Context) {
	batch, students, err := sessionFrom(c).Roster(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": batch, "students": students})
}

func catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"subjects":  domain.SubjectSuggestions,
		"schedules": domain.ScheduleSuggestions,
		"genders":   []domain.Gender{domain.Male, domain.Female, domain.Other},
		"transport": []domain.Transport{domain.UsesTransport, domain.NoTransport},
		"batch":     domain.DefaultBatch,
	})
}

func writeError(c *gin.Context, err error) {
	var verr *validate.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Map()})
	case errors.Is(err, reconcile.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, academy.ErrInvalidCredentials), errors.Is(err, errBadMember):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, reconcile.ErrSessionClosed), errors.Is(err, reconcile.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	case errors.Is(err, reconcile.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
