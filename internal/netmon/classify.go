package netmon

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrOffline is returned by store-touching code paths when the monitor
// already knows the backing store is unreachable, so callers fail fast
// instead of waiting out a network timeout.
var ErrOffline = errors.New("backing store unreachable")

// Classification tells a caller whether a failed mutation should be queued
// for retry or surfaced immediately, with a user-facing message.
type Classification struct {
	Retryable   bool
	UserMessage string
}

// Classify maps an error to its retry classification. Pure function: same
// error, same answer. Timeouts, refused/reset connections and server-side
// resource exhaustion are retryable; constraint violations, missing rows,
// permission errors and stale-version conflicts are terminal.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	switch {
	case errors.Is(err, ErrOffline):
		return Classification{Retryable: true, UserMessage: "Tidak ada koneksi. Operasi disimpan dan akan disinkronkan otomatis."}
	case errors.Is(err, context.DeadlineExceeded):
		return Classification{Retryable: true, UserMessage: "Koneksi timeout. Operasi akan dicoba lagi."}
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return Classification{Retryable: true, UserMessage: "Server tidak dapat dihubungi. Operasi akan dicoba lagi."}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Classification{Retryable: false, UserMessage: "Data dengan nama tersebut sudah ada."}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Classification{Retryable: false, UserMessage: "Data tidak ditemukan."}
	case errors.Is(err, repository.ErrStaleStockItem):
		return Classification{Retryable: false, UserMessage: "Data diubah oleh proses lain. Muat ulang dan coba lagi."}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Classification{Retryable: true, UserMessage: "Koneksi timeout. Operasi akan dicoba lagi."}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		// SQLSTATE classes: 08 connection exception, 53 insufficient
		// resources (rate-limit equivalent), 57 operator intervention
		// (shutdown/restart). Everything else is a terminal store error.
		switch pgErr.Code[:2] {
		case "08", "53", "57":
			return Classification{Retryable: true, UserMessage: "Server sibuk. Operasi akan dicoba lagi."}
		}
		if pgErr.Code == "23505" {
			return Classification{Retryable: false, UserMessage: "Data dengan nama tersebut sudah ada."}
		}
		if pgErr.Code == "42501" {
			return Classification{Retryable: false, UserMessage: "Akses ditolak."}
		}
		return Classification{Retryable: false, UserMessage: "Terjadi kesalahan pada server."}
	}

	return Classification{Retryable: false, UserMessage: "Terjadi kesalahan. Silakan coba lagi."}
}
