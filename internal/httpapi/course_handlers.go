package httpapi

import (
	"net/http"
	"strings"

	"coremd.cloud/internal/audit"
	"coremd.cloud/internal/auth"
	"coremd.cloud/internal/course"
)

// courseWriters are the roles allowed to create and modify courses and
// modules.
var courseWriters = []auth.RoleName{auth.RoleAdmin, auth.RoleModerator, auth.RoleInstructor}

func (a *API) handleCourses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		courses, err := a.courses.ListCourses(r.Context())
		if err != nil {
			handleCourseError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
	case http.MethodPost:
		a.createCourse(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

type createCourseRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	DisplayPicture string `json:"display_picture"`
	Price          int64  `json:"price"`
	FeeType        string `json:"fee_type"`
	Published      bool   `json:"published"`
	InstructorID   string `json:"instructor_id"`
}

func (a *API) createCourse(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Authorize(r.Context(), courseWriters...); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req createCourseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Instructors always own their courses; admins and moderators may
	// create on another instructor's behalf.
	current, _ := auth.CurrentUser(r.Context())
	instructorID := req.InstructorID
	if instructorID == "" || a.auth.Authorize(r.Context(), auth.RoleInstructor) == nil {
		instructorID = current.ID
	}
	c, err := a.courses.CreateCourse(r.Context(), course.CreateCourseInput{
		InstructorID:   instructorID,
		Title:          req.Title,
		Description:    req.Description,
		DisplayPicture: req.DisplayPicture,
		Price:          req.Price,
		FeeType:        req.FeeType,
		Published:      req.Published,
	})
	if err != nil {
		handleCourseError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "course.create", map[string]any{"course_id": c.ID})
	writeJSON(w, http.StatusCreated, map[string]any{"course": c})
}

// handleCourseSubtree dispatches everything under /v1/courses/:
//
//	/v1/courses/{id}
//	/v1/courses/{id}/subscribe
//	/v1/courses/{id}/modules
//	/v1/courses/{id}/modules/{module_id}
//	/v1/courses/{id}/modules/{module_id}/instructor
func (a *API) handleCourseSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/courses/"), "/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "Not found")
		return
	}
	courseID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleCourseByID(w, r, courseID)
	case len(parts) == 2 && parts[1] == "subscribe":
		a.subscribeCourse(w, r, courseID)
	case len(parts) == 2 && parts[1] == "modules":
		a.handleModules(w, r, courseID)
	case len(parts) == 3 && parts[1] == "modules":
		a.handleModuleByID(w, r, parts[2])
	case len(parts) == 4 && parts[1] == "modules" && parts[3] == "instructor":
		a.moduleInstructor(w, r, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "Not found")
	}
}

func (a *API) handleCourseByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		c, err := a.courses.GetCourse(r.Context(), id)
		if err != nil {
			handleCourseError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"course": c})
	case http.MethodPut:
		if err := a.auth.Authorize(r.Context(), courseWriters...); err != nil {
			handleAuthError(w, r, err)
			return
		}
		var req struct {
			Title          *string `json:"title"`
			Description    *string `json:"description"`
			DisplayPicture *string `json:"display_picture"`
			Price          *int64  `json:"price"`
			FeeType        *string `json:"fee_type"`
			Published      *bool   `json:"published"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.courses.UpdateCourse(r.Context(), id, course.UpdateCourseInput{
			Title:          req.Title,
			Description:    req.Description,
			DisplayPicture: req.DisplayPicture,
			Price:          req.Price,
			FeeType:        req.FeeType,
			Published:      req.Published,
		})
		if err != nil {
			handleCourseError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "course.update", map[string]any{"course_id": id})
		writeJSON(w, http.StatusOK, map[string]any{"course": c})
	case http.MethodDelete:
		if err := a.auth.Authorize(r.Context(), courseWriters...); err != nil {
			handleAuthError(w, r, err)
			return
		}
		if err := a.courses.DeleteCourse(r.Context(), id); err != nil {
			handleCourseError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "course.delete", map[string]any{"course_id": id})
		writeJSON(w, http.StatusOK, map[string]any{"message": "Course deleted."})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) subscribeCourse(w http.ResponseWriter, r *http.Request, courseID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := a.auth.Authorize(r.Context(), auth.RoleStudent); err != nil {
		handleAuthError(w, r, err)
		return
	}
	current, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated.Status, auth.ErrUnauthenticated.Message)
		return
	}
	c, err := a.courses.Subscribe(r.Context(), courseID, current.ID)
	if err != nil {
		handleCourseError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "course.subscribe", map[string]any{"course_id": courseID})
	writeJSON(w, http.StatusOK, map[string]any{"course": c})
}

func (a *API) handleModules(w http.ResponseWriter, r *http.Request, courseID string) {
	switch r.Method {
	case http.MethodGet:
		modules, err := a.courses.ListModules(r.Context(), courseID)
		if err != nil {
			handleCourseError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"modules": modules})
	case http.MethodPost:
		if err := a.auth.Authorize(r.Context(), courseWriters...); err != nil {
			handleAuthError(w, r, err)
			return
		}
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		m, err := a.courses.CreateModule(r.Context(), courseID, req.Title, req.Description)
		if err != nil {
			handleCourseError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "module.create", map[string]any{"course_id": courseID, "module_id": m.ID})
		writeJSON(w, http.StatusCreated, map[string]any{"module": m})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleModuleByID(w http.ResponseWriter, r *http.Request, moduleID string) {
	switch r.Method {
	case http.MethodGet:
		m, err := a.courses.GetModule(r.Context(), moduleID)
		if err != nil {
			handleCourseError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"module": m})
	case http.MethodPut:
		if err := a.auth.Authorize(r.Context(), courseWriters...); err != nil {
			handleAuthError(w, r, err)
			return
		}
		var req struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			IsActive    *bool   `json:"is_active"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		m, err := a.courses.UpdateModule(r.Context(), moduleID, course.UpdateModuleInput{
			Title:       req.Title,
			Description: req.Description,
			IsActive:    req.IsActive,
		})
		if err != nil {
			handleCourseError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "module.update", map[string]any{"module_id": moduleID})
		writeJSON(w, http.StatusOK, map[string]any{"module": m})
	case http.MethodDelete:
		if err := a.auth.Authorize(r.Context(), courseWriters...); err != nil {
			handleAuthError(w, r, err)
			return
		}
		if err := a.courses.DeleteModule(r.Context(), moduleID); err != nil {
			handleCourseError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "module.delete", map[string]any{"module_id": moduleID})
		writeJSON(w, http.StatusOK, map[string]any{"message": "Module deleted."})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) moduleInstructor(w http.ResponseWriter, r *http.Request, moduleID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	m, err := a.courses.GetModuleWithInstructor(r.Context(), moduleID)
	if err != nil {
		handleCourseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"module": m})
}
