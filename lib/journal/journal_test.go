// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package journal_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gatehouse-project/gatehouse/lib/journal"
)

func openTestJournal(t *testing.T) *journal.Journal {
	t.Helper()

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return j
}

func TestBootLifecycle(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	boot := journal.Boot{
		BootID:     "b1946ac9-2492-4c3a-b92f-62a352f35a63",
		Mode:       "managed",
		Target:     "/usr/local/bin/evennia",
		Argv:       []string{"evennia", "start", "--log"},
		Supervisor: "gatehouse v0.1.0",
	}
	if err := j.Begin(ctx, boot); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	boots, err := j.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(boots) != 1 {
		t.Fatalf("got %d boots, want 1", len(boots))
	}
	got := boots[0]
	if got.Outcome != journal.OutcomeRunning {
		t.Errorf("Outcome = %q, want running before Finish", got.Outcome)
	}
	if !got.FinishedAt.IsZero() {
		t.Errorf("FinishedAt = %v, want zero while running", got.FinishedAt)
	}
	if got.Target != boot.Target {
		t.Errorf("Target = %q, want %q", got.Target, boot.Target)
	}
	if strings.Join(got.Argv, " ") != strings.Join(boot.Argv, " ") {
		t.Errorf("Argv = %v, want %v", got.Argv, boot.Argv)
	}

	if err := j.Finish(ctx, boot.BootID, journal.OutcomeHandoff, 0, ""); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	found, err := j.Find(ctx, "b1946ac9")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.Outcome != journal.OutcomeHandoff {
		t.Errorf("Outcome = %q, want handoff", found.Outcome)
	}
	if found.FinishedAt.IsZero() {
		t.Error("FinishedAt should be set after Finish")
	}
}

func TestBeginRequiresIdentity(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	if err := j.Begin(ctx, journal.Boot{Mode: "managed"}); err == nil {
		t.Error("Begin without a boot ID should fail")
	}
	if err := j.Begin(ctx, journal.Boot{BootID: "boot-1"}); err == nil {
		t.Error("Begin without a mode should fail")
	}
}

func TestFinishUnknownBoot(t *testing.T) {
	j := openTestJournal(t)

	err := j.Finish(context.Background(), "no-such-boot", journal.OutcomeFailed, 1, "boom")
	if err == nil {
		t.Fatal("Finish of an unknown boot should fail")
	}
}

func TestPhasesKeepExecutionOrder(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	boot := journal.Boot{BootID: "boot-phases", Mode: "managed", Target: "/bin/true"}
	if err := j.Begin(ctx, boot); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	recorded := []journal.Phase{
		{Name: "preflight", Status: journal.StatusOK, Duration: 12 * time.Millisecond},
		{Name: "hook:collect-static", Status: journal.StatusSkipped, Detail: "when-guard exited 1"},
		{Name: "migration", Status: journal.StatusFailed, Duration: 1500 * time.Millisecond, Detail: "exit status 3"},
	}
	for _, phase := range recorded {
		if err := j.RecordPhase(ctx, boot.BootID, phase); err != nil {
			t.Fatalf("RecordPhase(%s): %v", phase.Name, err)
		}
	}

	phases, err := j.Phases(ctx, boot.BootID)
	if err != nil {
		t.Fatalf("Phases: %v", err)
	}
	if len(phases) != 3 {
		t.Fatalf("got %d phases, want 3", len(phases))
	}
	for index, phase := range phases {
		if phase.Sequence != index+1 {
			t.Errorf("phases[%d].Sequence = %d, want %d", index, phase.Sequence, index+1)
		}
		if phase.Name != recorded[index].Name {
			t.Errorf("phases[%d].Name = %q, want %q", index, phase.Name, recorded[index].Name)
		}
		if phase.Status != recorded[index].Status {
			t.Errorf("phases[%d].Status = %q, want %q", index, phase.Status, recorded[index].Status)
		}
		if phase.Duration != recorded[index].Duration {
			t.Errorf("phases[%d].Duration = %v, want %v", index, phase.Duration, recorded[index].Duration)
		}
		if phase.Detail != recorded[index].Detail {
			t.Errorf("phases[%d].Detail = %q, want %q", index, phase.Detail, recorded[index].Detail)
		}
	}
}

func TestFindPrefixResolution(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for _, id := range []string{"aaaa1111-0000", "aaaa2222-0000", "bbbb3333-0000"} {
		if err := j.Begin(ctx, journal.Boot{BootID: id, Mode: "managed", Target: "/bin/true"}); err != nil {
			t.Fatalf("Begin(%s): %v", id, err)
		}
	}

	boot, err := j.Find(ctx, "bbbb")
	if err != nil {
		t.Fatalf("Find(bbbb): %v", err)
	}
	if boot.BootID != "bbbb3333-0000" {
		t.Errorf("BootID = %q, want bbbb3333-0000", boot.BootID)
	}

	if _, err := j.Find(ctx, "aaaa"); err == nil {
		t.Error("Find with an ambiguous prefix should fail")
	}
	if _, err := j.Find(ctx, "cccc"); err == nil {
		t.Error("Find with no match should fail")
	}
	if _, err := j.Find(ctx, ""); err == nil {
		t.Error("Find with an empty prefix should fail")
	}
}

func TestReportRoundtrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	boot := journal.Boot{BootID: "boot-report", Mode: "managed", Target: "/bin/true"}
	if err := j.Begin(ctx, boot); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// No report yet: nil without error.
	report, err := j.Report(ctx, boot.BootID)
	if err != nil {
		t.Fatalf("Report before attach: %v", err)
	}
	if report != nil {
		t.Errorf("Report = %v, want nil before attach", report)
	}

	blob := []byte{0xA2, 0x61, 0x61, 0x01, 0x61, 0x62, 0x02} // opaque CBOR
	if err := j.AttachReport(ctx, boot.BootID, blob); err != nil {
		t.Fatalf("AttachReport: %v", err)
	}

	report, err = j.Report(ctx, boot.BootID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !bytes.Equal(report, blob) {
		t.Errorf("Report = %x, want %x", report, blob)
	}

	if err := j.AttachReport(ctx, "no-such-boot", blob); err == nil {
		t.Error("AttachReport to an unknown boot should fail")
	}
	if _, err := j.Report(ctx, "no-such-boot"); err == nil {
		t.Error("Report for an unknown boot should fail")
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Now().Add(-3 * time.Hour)
	for index, id := range []string{"boot-old", "boot-mid", "boot-new"} {
		boot := journal.Boot{
			BootID:    id,
			Mode:      "managed",
			Target:    "/bin/true",
			StartedAt: base.Add(time.Duration(index) * time.Hour),
		}
		if err := j.Begin(ctx, boot); err != nil {
			t.Fatalf("Begin(%s): %v", id, err)
		}
	}

	boots, err := j.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(boots) != 3 {
		t.Fatalf("got %d boots, want 3", len(boots))
	}
	for index, want := range []string{"boot-new", "boot-mid", "boot-old"} {
		if boots[index].BootID != want {
			t.Errorf("boots[%d].BootID = %q, want %q", index, boots[index].BootID, want)
		}
	}

	limited, err := j.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("got %d boots with limit 2, want 2", len(limited))
	}
	if limited[0].BootID != "boot-new" {
		t.Errorf("limited[0].BootID = %q, want boot-new", limited[0].BootID)
	}
}
