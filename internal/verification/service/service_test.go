package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hetu/internal/attestation"
	"hetu/internal/verification/models"
	"hetu/internal/verification/store"
	dErrors "hetu/pkg/domain-errors"
	"hetu/pkg/henkilotunnus"
	"hetu/pkg/requestcontext"
)

// stubCache is a test double for the verdict cache.
type stubCache struct {
	verdicts  map[string]*models.Verdict
	findErr   error
	saveErr   error
	saveCalls []*models.Verdict
}

func newStubCache() *stubCache {
	return &stubCache{verdicts: make(map[string]*models.Verdict)}
}

func (c *stubCache) Find(_ context.Context, subjectHash string) (*models.Verdict, error) {
	if c.findErr != nil {
		return nil, c.findErr
	}
	if v, ok := c.verdicts[subjectHash]; ok {
		return v, nil
	}
	return nil, store.ErrNotFound
}

func (c *stubCache) Save(_ context.Context, verdict *models.Verdict) error {
	c.saveCalls = append(c.saveCalls, verdict)
	if c.saveErr != nil {
		return c.saveErr
	}
	c.verdicts[verdict.SubjectHash] = verdict
	return nil
}

func (c *stubCache) Purge(_ context.Context) int {
	n := len(c.verdicts)
	c.verdicts = make(map[string]*models.Verdict)
	return n
}

func (c *stubCache) Len() int { return len(c.verdicts) }

// stubIssuer is a test double for the receipt issuer.
type stubIssuer struct {
	issueErr error
	issued   []*models.Verdict
}

func (i *stubIssuer) Issue(_ context.Context, verdict *models.Verdict) (*attestation.Receipt, error) {
	i.issued = append(i.issued, verdict)
	if i.issueErr != nil {
		return nil, i.issueErr
	}
	return &attestation.Receipt{
		Token:     "stub-token",
		ID:        "stub-jti",
		IssuedAt:  fixedNow,
		ExpiresAt: fixedNow.Add(15 * time.Minute),
	}, nil
}

type ServiceSuite struct {
	suite.Suite
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// fixedNow pins the request clock so age and timestamp assertions are
// deterministic.
var fixedNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func testContext() context.Context {
	return requestcontext.WithTime(context.Background(), fixedNow)
}

func (s *ServiceSuite) TestVerify() {
	s.Run("valid code yields a decoded verdict", func() {
		cache := newStubCache()
		svc := New(cache)

		verdict, err := svc.Verify(testContext(), "150698-111C")
		s.Require().NoError(err)
		s.True(verdict.Valid)
		s.Empty(verdict.Reason)
		s.Equal(henkilotunnus.HashCode("150698-111C"), verdict.SubjectHash)
		s.Equal("150698-111C", verdict.Code)
		s.Equal(time.Date(1998, 6, 15, 0, 0, 0, 0, time.UTC), verdict.BirthDate)
		s.Equal("male", verdict.Sex)
		s.Equal(27, verdict.Age)
		s.True(verdict.Adult)
		s.Equal(fixedNow, verdict.CheckedAt)
	})

	s.Run("malformed code yields an invalid verdict with format reason", func() {
		svc := New(newStubCache())

		verdict, err := svc.Verify(testContext(), "150698111C")
		s.Require().NoError(err)
		s.False(verdict.Valid)
		s.Equal(models.ReasonFormat, verdict.Reason)
		s.True(verdict.BirthDate.IsZero())
		s.Empty(verdict.Sex)
	})

	s.Run("wrong control character yields checksum reason", func() {
		svc := New(newStubCache())

		verdict, err := svc.Verify(testContext(), "150698-111D")
		s.Require().NoError(err)
		s.False(verdict.Valid)
		s.Equal(models.ReasonChecksum, verdict.Reason)
	})

	s.Run("nonexistent calendar date yields birth_date reason", func() {
		svc := New(newStubCache())

		// Feb 29 resolved to 1900, which is not a leap year.
		verdict, err := svc.Verify(testContext(), "290200Y9853")
		s.Require().NoError(err)
		s.False(verdict.Valid)
		s.Equal(models.ReasonBirthDate, verdict.Reason)
	})

	s.Run("commits the verdict to the cache on a miss", func() {
		cache := newStubCache()
		svc := New(cache)

		_, err := svc.Verify(testContext(), "150698-111C")
		s.Require().NoError(err)
		s.Len(cache.saveCalls, 1)
		s.Equal(henkilotunnus.HashCode("150698-111C"), cache.saveCalls[0].SubjectHash)
	})

	s.Run("invalid verdicts are cached too", func() {
		cache := newStubCache()
		svc := New(cache)

		_, err := svc.Verify(testContext(), "150698-111D")
		s.Require().NoError(err)
		s.Len(cache.saveCalls, 1)
		s.False(cache.saveCalls[0].Valid)
	})

	s.Run("serves a cached verdict without re-parsing", func() {
		cache := newStubCache()
		earlier := fixedNow.Add(-2 * time.Minute)
		cached := &models.Verdict{
			SubjectHash: henkilotunnus.HashCode("150698-111C"),
			Code:        "150698-111C",
			Valid:       true,
			BirthDate:   time.Date(1998, 6, 15, 0, 0, 0, 0, time.UTC),
			Sex:         "male",
			Age:         27,
			Adult:       true,
			CheckedAt:   earlier,
		}
		cache.verdicts[cached.SubjectHash] = cached
		svc := New(cache)

		verdict, err := svc.Verify(testContext(), "150698-111C")
		s.Require().NoError(err)
		s.True(verdict.Valid)
		// CheckedAt reflects the original verification, not this request.
		s.Equal(earlier, verdict.CheckedAt)
		s.Empty(cache.saveCalls)
	})

	s.Run("cache backend failure surfaces as an internal error", func() {
		cache := newStubCache()
		cache.findErr = errors.New("backend down")
		svc := New(cache)

		verdict, err := svc.Verify(testContext(), "150698-111C")
		s.Require().Error(err)
		s.Nil(verdict)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("cache save failure does not fail the verification", func() {
		cache := newStubCache()
		cache.saveErr = errors.New("write failed")
		svc := New(cache)

		verdict, err := svc.Verify(testContext(), "150698-111C")
		s.Require().NoError(err)
		s.True(verdict.Valid)
	})

	s.Run("works without a cache", func() {
		svc := New(nil)

		verdict, err := svc.Verify(testContext(), "150698-111C")
		s.Require().NoError(err)
		s.True(verdict.Valid)
	})
}

func (s *ServiceSuite) TestVerifyBatch() {
	s.Run("returns verdicts in input order", func() {
		svc := New(newStubCache())

		verdicts, err := svc.VerifyBatch(testContext(), []string{
			"150698-111C", // valid
			"150698111C",  // format
			"150698-111D", // checksum
			"290200Y9853", // birth_date
		})
		s.Require().NoError(err)
		s.Require().Len(verdicts, 4)

		s.True(verdicts[0].Valid)
		s.False(verdicts[1].Valid)
		s.Equal(models.ReasonFormat, verdicts[1].Reason)
		s.False(verdicts[2].Valid)
		s.Equal(models.ReasonChecksum, verdicts[2].Reason)
		s.False(verdicts[3].Valid)
		s.Equal(models.ReasonBirthDate, verdicts[3].Reason)
	})

	s.Run("duplicate codes are served from the cache", func() {
		cache := newStubCache()
		svc := New(cache)

		// Warm the cache so the batch duplicates all hit it.
		_, err := svc.Verify(testContext(), "150698-111C")
		s.Require().NoError(err)

		verdicts, err := svc.VerifyBatch(testContext(), []string{
			"150698-111C", "150698-111C", "150698-111C",
		})
		s.Require().NoError(err)
		s.Require().Len(verdicts, 3)
		for _, v := range verdicts {
			s.True(v.Valid)
		}
		s.Len(cache.saveCalls, 1)
	})

	s.Run("handles a batch larger than the worker pool", func() {
		svc := New(newStubCache())

		codes := make([]string, 50)
		for i := range codes {
			codes[i] = "150698-111C"
		}
		verdicts, err := svc.VerifyBatch(testContext(), codes)
		s.Require().NoError(err)
		s.Len(verdicts, 50)
	})

	s.Run("cache backend failure fails the batch", func() {
		cache := newStubCache()
		cache.findErr = errors.New("backend down")
		svc := New(cache)

		verdicts, err := svc.VerifyBatch(testContext(), []string{"150698-111C"})
		s.Require().Error(err)
		s.Nil(verdicts)
	})

	s.Run("empty batch yields an empty result", func() {
		svc := New(newStubCache())

		verdicts, err := svc.VerifyBatch(testContext(), nil)
		s.Require().NoError(err)
		s.Empty(verdicts)
	})
}

func (s *ServiceSuite) TestAttest() {
	s.Run("attests a valid code", func() {
		issuer := &stubIssuer{}
		svc := New(newStubCache(), WithReceiptIssuer(issuer))

		verdict, receipt, err := svc.Attest(testContext(), "150698-111C")
		s.Require().NoError(err)
		s.True(verdict.Valid)
		s.Require().NotNil(receipt)
		s.Equal("stub-token", receipt.Token)
		s.Len(issuer.issued, 1)
		s.Equal(verdict.SubjectHash, issuer.issued[0].SubjectHash)
	})

	s.Run("refuses an invalid code without calling the issuer", func() {
		issuer := &stubIssuer{}
		svc := New(newStubCache(), WithReceiptIssuer(issuer))

		verdict, receipt, err := svc.Attest(testContext(), "150698-111D")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnprocessable))
		s.Require().NotNil(verdict)
		s.False(verdict.Valid)
		s.Equal(models.ReasonChecksum, verdict.Reason)
		s.Nil(receipt)
		s.Empty(issuer.issued)
	})

	s.Run("fails when no issuer is configured", func() {
		svc := New(newStubCache())

		_, _, err := svc.Attest(testContext(), "150698-111C")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("propagates issuer failures", func() {
		issuer := &stubIssuer{issueErr: errors.New("signing failed")}
		svc := New(newStubCache(), WithReceiptIssuer(issuer))

		_, receipt, err := svc.Attest(testContext(), "150698-111C")
		s.Require().Error(err)
		s.Nil(receipt)
	})
}

func (s *ServiceSuite) TestPurgeCache() {
	s.Run("reports the number of removed verdicts", func() {
		cache := newStubCache()
		svc := New(cache)

		_, err := svc.Verify(testContext(), "150698-111C")
		s.Require().NoError(err)
		_, err = svc.Verify(testContext(), "290224A975Y")
		s.Require().NoError(err)

		purged, err := svc.PurgeCache(testContext())
		s.Require().NoError(err)
		s.Equal(2, purged)
		s.Equal(0, cache.Len())
	})

	s.Run("purging without a cache is a no-op", func() {
		svc := New(nil)

		purged, err := svc.PurgeCache(testContext())
		s.Require().NoError(err)
		s.Equal(0, purged)
	})
}
