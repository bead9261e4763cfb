package service

import (
	"fmt"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

// ErrCartLineNotOwned hides ownership mismatches behind NotFound so a
// caller cannot learn whether someone else's line id exists.
var ErrCartLineNotOwned = fmt.Errorf("cart line: %w", domain.ErrNotFound)
