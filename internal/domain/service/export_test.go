package service

import "time"

// Clock injection for expiry-sensitive tests. Card expiry is month granular,
// so assertions on day thresholds need a pinned reference time.

func (s *RecoveryService) SetNow(now func() time.Time) { s.now = now }

func (s *ExpiryScanner) SetNow(now func() time.Time) { s.now = now }
