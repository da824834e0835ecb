package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/gin-gonic/gin"
)

type partialDeleteResponse struct {
	Group  string   `json:"group"`
	Failed []string `json:"failed"`
}

// createGroup takes a multipart form with a "name" value and any number of
// "files" parts. The files are uploaded first and then merged into the group;
// if either step fails the parts stored so far are deleted again.
func (s *Server) createGroup(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.badRequest(c, "multipart form expected")
		return
	}
	name := ""
	if v := form.Value["name"]; len(v) > 0 {
		name = v[0]
	}
	if name == "" {
		s.badRequest(c, `form value "name" is required`)
		return
	}

	ctx := c.Request.Context()
	metas, err := s.upload(c, form.File["files"])
	if err != nil {
		s.discard(ctx, metas)
		s.failUpload(c, err)
		return
	}

	g, err := s.groups.CreateOrMerge(ctx, name, metas)
	if err != nil {
		s.discard(ctx, metas)
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (s *Server) listGroups(c *gin.Context) {
	list, err := s.groups.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getGroup(c *gin.Context) {
	g, err := s.groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// groupFiles returns the embedded file list, or with ?resolve=true the
// metadata currently held by the file store.
func (s *Server) groupFiles(c *gin.Context) {
	resolve, _ := strconv.ParseBool(c.Query("resolve"))

	var (
		ctx = c.Request.Context()
		id  = c.Param("id")
	)
	if resolve {
		files, err := s.groups.ResolveFiles(ctx, id)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, files)
		return
	}

	files, err := s.groups.FilesOf(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (s *Server) renameGroup(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, `body must be {"name": "..."}`)
		return
	}
	if err := s.groups.Rename(c.Request.Context(), c.Param("id"), req.Name); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteGroup answers 207 when some files could not be removed; the group
// is then still present.
func (s *Server) deleteGroup(c *gin.Context) {
	err := s.groups.Delete(c.Request.Context(), c.Param("id"))

	var pde *common.PartialDeleteError
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.As(err, &pde):
		s.metrics.GetOrCreateCounter("groups_partial_delete_total").Inc()
		s.logger.Warn(c.Request.Context(), "group partially deleted", "group", pde.GroupID, "failed", pde.FailedIDs())
		c.JSON(http.StatusMultiStatus, partialDeleteResponse{Group: pde.GroupID, Failed: pde.FailedIDs()})
	default:
		s.fail(c, err)
	}
}

func (s *Server) addGroupFiles(c *gin.Context) {
	ctx := c.Request.Context()

	g, err := s.groups.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		s.badRequest(c, "multipart form expected")
		return
	}

	metas, err := s.upload(c, form.File["files"])
	if err != nil {
		s.discard(ctx, metas)
		s.failUpload(c, err)
		return
	}
	if err := s.groups.AddFiles(ctx, g.ID, metas); err != nil {
		s.discard(ctx, metas)
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, metas)
}

func (s *Server) removeGroupFile(c *gin.Context) {
	removed, err := s.groups.RemoveFile(c.Request.Context(), c.Param("id"), c.Param("fid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !removed {
		s.fail(c, common.ErrorNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) renameGroupFile(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, `body must be {"name": "..."}`)
		return
	}

	name, err := s.groups.RenameFile(c.Request.Context(), c.Param("id"), c.Param("fid"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renameResponse{Name: name})
}
