package filter

import (
	"slices"
	"testing"

	"github.com/nao1215/bilicrawl/internal/model"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		f := New()
		if f.Subject() != DefaultSubject {
			t.Errorf("expected subject %q, got %q", DefaultSubject, f.Subject())
		}
		if !slices.Equal(f.TopicHints(), DefaultTopicHints) {
			t.Errorf("unexpected hints %v", f.TopicHints())
		}
		if !f.RequireTopic() {
			t.Error("expected topic requirement to be on")
		}
	})

	t.Run("options", func(t *testing.T) {
		t.Parallel()

		f := New(
			WithSubject("安赛龙"),
			WithTopicHints([]string{" final ", "", "  "}),
			WithRequireTopic(false),
		)
		if f.Subject() != "安赛龙" {
			t.Errorf("unexpected subject %q", f.Subject())
		}
		if !slices.Equal(f.TopicHints(), []string{"final"}) {
			t.Errorf("unexpected hints %v", f.TopicHints())
		}
		if f.RequireTopic() {
			t.Error("expected topic requirement to be off")
		}
	})

	t.Run("empty overrides keep defaults", func(t *testing.T) {
		t.Parallel()

		f := New(WithSubject(""), WithTopicHints(nil))
		if f.Subject() != DefaultSubject {
			t.Errorf("unexpected subject %q", f.Subject())
		}
		if len(f.TopicHints()) != len(DefaultTopicHints) {
			t.Errorf("unexpected hints %v", f.TopicHints())
		}
	})

	t.Run("hints are copied", func(t *testing.T) {
		t.Parallel()

		f := New()
		hints := f.TopicHints()
		hints[0] = "changed"
		if f.TopicHints()[0] == "changed" {
			t.Error("TopicHints exposed internal slice")
		}
		if DefaultTopicHints[0] == "changed" {
			t.Error("defaults were modified")
		}
	})
}

func TestMatchesSubject(t *testing.T) {
	t.Parallel()

	f := New()
	tests := []struct {
		name   string
		record model.SearchRecord
		want   bool
	}{
		{name: "in title", record: model.SearchRecord{Title: "石宇奇 决赛"}, want: true},
		{name: "in tags", record: model.SearchRecord{Tags: []string{"羽毛球", "石宇奇"}}, want: true},
		{name: "in author", record: model.SearchRecord{Author: "石宇奇官方"}, want: true},
		{name: "in description", record: model.SearchRecord{Description: "主角是石宇奇"}, want: true},
		{name: "absent", record: model.SearchRecord{Title: "安赛龙 决赛", Tags: []string{"羽毛球"}}, want: false},
		{name: "split across tags", record: model.SearchRecord{Tags: []string{"石宇", "奇"}}, want: false},
		{name: "empty record", record: model.SearchRecord{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := f.MatchesSubject(tt.record); got != tt.want {
				t.Errorf("MatchesSubject() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesTopic(t *testing.T) {
	t.Parallel()

	f := New()
	tests := []struct {
		name   string
		record model.SearchRecord
		want   bool
	}{
		{name: "hint in title", record: model.SearchRecord{Title: "全英赛 半决赛"}, want: true},
		{name: "hint in tags", record: model.SearchRecord{Tags: []string{"汤姆斯杯"}}, want: true},
		{name: "hint across concatenated tags", record: model.SearchRecord{Tags: []string{"比", "赛"}}, want: true},
		{name: "hint only in description", record: model.SearchRecord{Description: "比赛"}, want: false},
		{name: "hint only in author", record: model.SearchRecord{Author: "比赛录像"}, want: false},
		{name: "no hint", record: model.SearchRecord{Title: "日常训练", Tags: []string{"vlog"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := f.MatchesTopic(tt.record); got != tt.want {
				t.Errorf("MatchesTopic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeep(t *testing.T) {
	t.Parallel()

	subjectOnly := model.SearchRecord{Title: "石宇奇 日常训练"}
	both := model.SearchRecord{Title: "石宇奇 世锦赛 全场"}
	topicOnly := model.SearchRecord{Title: "世锦赛 全场"}

	strict := New()
	if strict.Keep(subjectOnly) {
		t.Error("expected subject-only record to be dropped")
	}
	if !strict.Keep(both) {
		t.Error("expected matching record to be kept")
	}
	if strict.Keep(topicOnly) {
		t.Error("expected topic-only record to be dropped")
	}

	loose := New(WithRequireTopic(false))
	if !loose.Keep(subjectOnly) {
		t.Error("expected subject-only record to be kept without topic filter")
	}
	if loose.Keep(topicOnly) {
		t.Error("subject is always required")
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	records := []model.SearchRecord{
		{VideoID: "BV1", Title: "石宇奇 决赛"},
		{VideoID: "BV2", Title: "other 决赛"},
		{VideoID: "BV3", Title: "石宇奇 集锦"},
	}

	kept := New().Apply(records)
	if len(kept) != 2 || kept[0].VideoID != "BV1" || kept[1].VideoID != "BV3" {
		t.Errorf("unexpected result %v", kept)
	}

	if got := New().Apply(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
