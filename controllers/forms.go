package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cppla/yatube/services"
)

type postForm struct {
	Text  string `form:"text" json:"text" binding:"required"`
	Group string `form:"group" json:"group" binding:"omitempty,numeric"`
}

func (f postForm) groupID() *uint {
	if f.Group == "" {
		return nil
	}
	id, err := strconv.ParseUint(f.Group, 10, 64)
	if err != nil {
		return nil
	}
	v := uint(id)
	return &v
}

type commentForm struct {
	Text string `form:"text" json:"text" binding:"required"`
}

type credentialsForm struct {
	Username string `form:"username" json:"username" binding:"required,max=150"`
	Password string `form:"password" json:"password" binding:"required"`
}

// bind decodes the request body into form and turns binding failures into a *services.ValidationError.
func bind(ctx *gin.Context, form interface{}) error {
	err := ctx.ShouldBind(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &services.ValidationError{Fields: map[string]string{"form": "malformed request body"}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = describe(fe)
	}
	return &services.ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return "ensure this value has at most " + fe.Param() + " characters"
	case "numeric":
		return "enter a whole number"
	default:
		return "invalid value"
	}
}

// formSkeleton describes a form so clients know what to send and where.
func formSkeleton(action string, fields ...string) gin.H {
	return gin.H{"action": action, "method": http.MethodPost, "fields": fields}
}
