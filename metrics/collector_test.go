package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("work", "imap")

	c.IncMailsFetched()
	c.IncMailsFetched()
	c.IncMailsOversize()
	c.IncMailsError()
	c.IncMailsKept()
	c.IncMailsDropped()
	c.IncMailsDropped()
	c.IncMailsDelBig()
	c.IncActionsDispatched()
	c.IncActionsDispatched()
	c.IncActionsFailed()
	c.IncIPCDecodeErrors()
	c.IncPurgeRun()

	s := c.Snapshot()

	if s.MailsFetched != 2 {
		t.Errorf("MailsFetched = %d, want 2", s.MailsFetched)
	}
	if s.MailsOversize != 1 {
		t.Errorf("MailsOversize = %d, want 1", s.MailsOversize)
	}
	if s.MailsError != 1 {
		t.Errorf("MailsError = %d, want 1", s.MailsError)
	}
	if s.MailsKept != 1 {
		t.Errorf("MailsKept = %d, want 1", s.MailsKept)
	}
	if s.MailsDropped != 2 {
		t.Errorf("MailsDropped = %d, want 2", s.MailsDropped)
	}
	if s.MailsDelBig != 1 {
		t.Errorf("MailsDelBig = %d, want 1", s.MailsDelBig)
	}
	if s.ActionsDispatched != 2 {
		t.Errorf("ActionsDispatched = %d, want 2", s.ActionsDispatched)
	}
	if s.ActionsFailed != 1 {
		t.Errorf("ActionsFailed = %d, want 1", s.ActionsFailed)
	}
	if s.IPCDecodeErrors != 1 {
		t.Errorf("IPCDecodeErrors = %d, want 1", s.IPCDecodeErrors)
	}
	if s.PurgeRuns != 1 {
		t.Errorf("PurgeRuns = %d, want 1", s.PurgeRuns)
	}
	if s.Account != "work" || s.Backend != "imap" {
		t.Errorf("dimensions = %q/%q, want work/imap", s.Account, s.Backend)
	}
}

func TestCollector_NilReceiverIsSafe(t *testing.T) {
	var c *Collector
	c.IncMailsFetched()
	c.IncMailsError()
	c.IncActionsFailed()
	if s := c.Snapshot(); s.MailsFetched != 0 {
		t.Errorf("nil collector snapshot should be zero, got %+v", s)
	}
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := NewCollector("work", "imap")
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncMailsFetched()
		}()
	}
	wg.Wait()
	if s := c.Snapshot(); s.MailsFetched != 100 {
		t.Errorf("MailsFetched = %d, want 100", s.MailsFetched)
	}
}
