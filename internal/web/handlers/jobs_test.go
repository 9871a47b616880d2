package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/event-faces/internal/facematch"
)

var testJobScope = facematch.Scope{Owner: "jan", EventID: "ev1"}

func TestJobManager_CreateGetDelete(t *testing.T) {
	m := NewJobManager()

	job := m.CreateJob("a", JobKindMatch, testJobScope)
	if got := m.GetJob("a"); got != job {
		t.Fatal("GetJob did not return the created job")
	}
	if job.GetStatus() != JobStatusPending {
		t.Errorf("expected pending, got %s", job.GetStatus())
	}

	m.DeleteJob("a")
	if m.GetJob("a") != nil {
		t.Error("expected job to be deleted")
	}
}

func TestJobManager_ListJobsOldestFirst(t *testing.T) {
	m := NewJobManager()
	first := m.CreateJob("first", JobKindMatch, testJobScope)
	second := m.CreateJob("second", JobKindCluster, testJobScope)
	second.startedAt = first.startedAt.Add(time.Second)

	jobs := m.ListJobs()
	if len(jobs) != 2 || jobs[0] != first || jobs[1] != second {
		t.Errorf("unexpected order %v", jobs)
	}
}

func TestJobManager_PruneFinished(t *testing.T) {
	m := NewJobManager()
	done := m.CreateJob("done", JobKindMatch, testJobScope)
	done.finish(nil)
	m.CreateJob("pending", JobKindMatch, testJobScope)

	if n := m.PruneFinished(time.Now().Add(-time.Hour)); n != 0 {
		t.Errorf("expected nothing pruned before cutoff, got %d", n)
	}
	if n := m.PruneFinished(time.Now().Add(time.Second)); n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if m.GetJob("done") != nil || m.GetJob("pending") == nil {
		t.Error("expected only the finished job to be pruned")
	}
}

func TestEventBroadcaster(t *testing.T) {
	var b EventBroadcaster
	ch1 := b.AddListener()
	ch2 := b.AddListener()

	b.SendEvent(JobEvent{Type: "progress"})
	if ev := <-ch1; ev.Type != "progress" {
		t.Errorf("listener 1 got %s", ev.Type)
	}
	if ev := <-ch2; ev.Type != "progress" {
		t.Errorf("listener 2 got %s", ev.Type)
	}

	b.RemoveListener(ch1)
	if _, ok := <-ch1; ok {
		t.Error("expected removed listener channel to be closed")
	}
	b.SendEvent(JobEvent{Type: "completed"})
	if ev := <-ch2; ev.Type != "completed" {
		t.Errorf("listener 2 got %s", ev.Type)
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJobManager().CreateJob("j", JobKindMatch, testJobScope)
	events := job.AddListener()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	job.start(cancel, 10)
	job.progress(5, 10)
	job.finish("done")

	for _, want := range []string{"started", "progress", "completed"} {
		if ev := <-events; ev.Type != want {
			t.Errorf("expected %s event, got %s", want, ev.Type)
		}
	}

	view := job.View()
	if view.Status != JobStatusCompleted || view.Processed != 5 || view.Total != 10 || view.CompletedAt == nil {
		t.Errorf("unexpected view %+v", view)
	}
	if job.Cancel() {
		t.Error("expected Cancel to refuse a finished job")
	}
}

func TestJob_CancelBeforeStart(t *testing.T) {
	job := NewJobManager().CreateJob("j", JobKindMatch, testJobScope)
	if !job.Cancel() {
		t.Fatal("expected pending job to be cancellable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	job.start(cancel, 3)

	if ctx.Err() == nil {
		t.Error("expected start to cancel the run of a cancelled job")
	}
	job.fail(facematch.CodeOracleUnavailable, "late failure", nil)
	if job.GetStatus() != JobStatusCancelled {
		t.Errorf("expected cancelled status to stick, got %s", job.GetStatus())
	}
}
