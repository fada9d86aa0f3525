package handlers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jjenkins/orgadmin/internal/command"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/jjenkins/orgadmin/internal/view"
)

// AuthCookie carries the token for browser form posts, which cannot set headers
const AuthCookie = "orgadmin_token"

// RequireAuth accepts requests carrying a valid HS256 token, either as a
// bearer header or in the AuthCookie cookie
func RequireAuth(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}

		claims := jwt.MapClaims{}
		t, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !t.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Cookies(AuthCookie)
}

// statusFor maps dispatch errors to HTTP status codes
func statusFor(err error) int {
	var apiErr *service.APIError
	switch {
	case errors.Is(err, command.ErrUnknownCommand), errors.Is(err, command.ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, command.ErrUnknownUnit):
		return fiber.StatusNotFound
	case errors.Is(err, command.ErrCycle), errors.Is(err, command.ErrOvercommitted):
		return fiber.StatusConflict
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return fiber.StatusBadGateway
	default:
		return fiber.StatusBadGateway
	}
}

// CommandsHandler dispatches a JSON {"type", "payload"} command
func CommandsHandler(d *command.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "commands are disabled: no organization API configured")
		}

		cmd, err := command.DecodeEnvelope(c.Body())
		if err != nil {
			return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
		}

		res, err := d.Dispatch(c.UserContext(), cmd)
		if err != nil {
			return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(res)
	}
}

// UnitFormHandler dispatches the overlay forms of the unit tree
func UnitFormHandler(d *command.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d == nil {
			return redirectFlash(c, "Editing is disabled: no organization API configured")
		}

		cmd, err := commandFromForm(view.ModeKind(c.FormValue("mode")), c.FormValue)
		if err != nil {
			return redirectFlash(c, err.Error())
		}

		res, err := d.Dispatch(c.UserContext(), cmd)
		if err != nil {
			return redirectFlash(c, err.Error())
		}
		return redirectFlash(c, res.Message)
	}
}

func redirectFlash(c *fiber.Ctx, msg string) error {
	return c.Redirect("/units?flash="+url.QueryEscape(msg), fiber.StatusSeeOther)
}

// commandFromForm builds the command for an overlay mode from its form fields
func commandFromForm(kind view.ModeKind, field func(key string, def ...string) string) (command.Command, error) {
	get := func(key string) string { return strings.TrimSpace(field(key)) }

	switch kind {
	case view.KindEditUnit:
		changes := map[string]any{}
		for _, key := range []string{"name", "abbreviation", "motto", "location"} {
			if v := get(key); v != "" {
				changes[key] = v
			}
		}
		return command.UpdateUnit{UnitID: get("unit_id"), Changes: changes}, nil
	case view.KindAssignCommander:
		return command.AssignCommander{UnitID: get("unit_id"), UserID: get("user_id")}, nil
	case view.KindMoveUnit:
		return command.MoveUnit{UnitID: get("unit_id"), NewParentID: get("new_parent_id")}, nil
	case view.KindCreatePosition:
		return command.CreatePosition{
			UnitID:       get("unit_id"),
			RoleID:       get("role_id"),
			DisplayTitle: get("display_title"),
			Identifier:   get("identifier"),
		}, nil
	case view.KindAssignHolder:
		return command.AssignHolder{PositionID: get("position_id"), UserID: get("user_id")}, nil
	default:
		return nil, command.ErrUnknownCommand
	}
}
