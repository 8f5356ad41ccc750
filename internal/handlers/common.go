// common.go
//
// Macro AI chat service backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of macroai.
// macroai is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// macroai is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with macroai.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/localnerve/macroai/internal/middleware"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/localnerve/macroai/internal/types"
)

// getUserID extracts the user ID from context (set by auth middleware)
func getUserID(c *fiber.Ctx) (string, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return "", types.NewUnauthorizedError("handlers - getUserId", "authentication required")
	}
	return userID, nil
}

// parsePagination reads the page and limit query parameters. Missing
// values are left zero for the service defaults.
func parsePagination(c *fiber.Ctx) (repositories.Pagination, error) {
	const op = "handlers - parsePagination"
	var p repositories.Pagination

	for name, dst := range map[string]*int{"page": &p.Page, "limit": &p.Limit} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, types.NewValidationError(op, name+" must be an integer")
		}
		*dst = v
	}
	return p, nil
}

// parseBody decodes a JSON request body
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return &types.Error{Kind: types.KindValidation, Op: "handlers - parseBody", Message: "invalid request body", Err: err}
	}
	return nil
}

// pathID reads a required path parameter. The result is copied so it
// outlives the request buffers.
func pathID(c *fiber.Ctx, name string) (string, error) {
	id := strings.TrimSpace(c.Params(name))
	if id == "" {
		return "", types.NewValidationError("handlers - pathId", name+" is required")
	}
	return fiberutils.CopyString(id), nil
}
