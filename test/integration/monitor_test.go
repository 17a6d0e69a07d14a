//go:build integration

package integration

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
	"github.com/eliteGoblin/focusd/flmon/internal/infra"
	"github.com/eliteGoblin/focusd/flmon/internal/monitor"
	"github.com/eliteGoblin/focusd/flmon/internal/target"
	"github.com/eliteGoblin/focusd/flmon/test/fixtures"
)

const (
	flPID    = 4242
	flTID    = 7
	flWindow = domain.WindowHandle(0x1000)
	dialog   = domain.WindowHandle(0x1001)

	mainClass   = "TFruityLoopsMainForm"
	projectDir  = `C:\Music\Projects`
	projectFile = "song.flp"
	projectPath = projectDir + `\` + projectFile
)

// stack is a supervisor wired to fake OS primitives and real storage.
type stack struct {
	windows  *fixtures.FakeWindowSystem
	input    *fixtures.FakeInput
	procs    *fixtures.FakeProcessManager
	reporter *fixtures.FakeReporter
	renames  *fixtures.FakeRenameWatcher
	overlay  *fixtures.FakeOverlay
	clock    *fixtures.FakeClock
	journal  *infra.Journal
	status   *infra.StatusFile
	registry *monitor.Registry
}

func newStack(heartbeat time.Duration) *stack {
	dataDir := GinkgoT().TempDir()
	key, err := infra.GenerateKey()
	Expect(err).NotTo(HaveOccurred())
	journal, err := infra.NewJournal(dataDir, key)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(journal.Close)

	s := &stack{
		windows:  fixtures.NewFakeWindowSystem(),
		input:    fixtures.NewFakeInput(),
		procs:    fixtures.NewFakeProcessManager(),
		reporter: fixtures.NewFakeReporter(),
		renames:  fixtures.NewFakeRenameWatcher(),
		overlay:  &fixtures.FakeOverlay{},
		clock:    fixtures.NewFakeClock(),
		journal:  journal,
		status:   infra.NewStatusFile(dataDir),
		registry: monitor.NewRegistry(),
	}

	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x8000000, 0x2000, fixtures.BufferWith(0x2000, 0x100, projectPath))
	opener := fixtures.NewFakeMemoryOpener()
	opener.Set(flPID, mem)

	s.procs.Spawn(flPID, "FL64.exe")
	s.windows.AddWindow(flWindow, fixtures.FakeWindow{PID: flPID, ThreadID: flTID, Class: mainClass, Title: "FL Studio 21"})
	s.windows.AddWindow(dialog, fixtures.FakeWindow{PID: flPID, ThreadID: flTID, Class: "TPluginForm", Title: "Fruity Limiter"})

	deps := monitor.Deps{
		Profile:    target.NewFLStudioProfile(),
		Processes:  s.procs,
		Memory:     opener,
		Windows:    s.windows,
		Input:      s.input,
		Files:      fixtures.NewFakeFS(projectPath),
		Reporter:   s.reporter,
		Renames:    s.renames,
		Journal:    journal,
		NewOverlay: func(domain.WindowHandle) domain.Overlay { return s.overlay },
		Logger:     zap.NewNop(),
		Now:        s.clock.Now,
	}
	cfg := monitor.SupervisorConfig{
		CreationGrace: 20 * time.Millisecond,
		Instance: monitor.Config{
			HeartbeatInterval:   heartbeat,
			WriteDebounce:       time.Second,
			ProcessPollInterval: 20 * time.Millisecond,
			IdleThreshold:       15 * time.Second,
		},
	}
	sup := monitor.NewSupervisor(cfg, deps, s.registry)
	writer := monitor.NewStatusWriter(s.status, sup, domain.StatusSnapshot{PID: 1, Target: "flstudio"}, 20*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	Expect(sup.Start(ctx)).To(Succeed())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = writer.Run(ctx)
	}()
	DeferCleanup(func() {
		cancel()
		sup.Stop()
		<-done
	})
	return s
}

func (s *stack) project() string {
	inst, ok := s.registry.Get(domain.InstanceKey{Window: flWindow, PID: flPID, ThreadID: flTID})
	if !ok {
		return "<untracked>"
	}
	return inst.Status().Project
}

func (s *stack) openProject() {
	s.windows.SetTitle(flWindow, "song.flp - FL Studio 21")
	Eventually(s.project).Should(Equal(projectFile))
}

func (s *stack) calls() []fixtures.ReportCall {
	return s.reporter.Calls()
}

var _ = Describe("Monitoring FL Studio", func() {
	var s *stack

	BeforeEach(func() {
		s = newStack(time.Hour)
	})

	Context("when the monitor starts", func() {
		It("tracks the already running instance", func() {
			Expect(s.registry.Len()).To(Equal(1))
			Expect(s.project()).To(BeEmpty())
		})

		It("publishes the open project in the status file", func() {
			s.openProject()

			Eventually(func() []domain.InstanceStatus {
				snap, err := s.status.Read()
				if err != nil || snap == nil {
					return nil
				}
				return snap.Instances
			}).Should(ContainElement(And(
				HaveField("Project", projectFile),
				HaveField("Path", projectPath),
			)))
		})
	})

	Context("when the title changes", func() {
		It("derives the project identity from the main window", func() {
			s.openProject()
			Expect(s.renames.Active()).To(Equal(1))
			Expect(s.overlay.Visible()).To(BeTrue())
		})

		It("ignores title changes of other windows in the process", func() {
			s.openProject()
			s.windows.SetTitle(dialog, "other.flp - FL Studio 21")

			Consistently(s.project, 100*time.Millisecond).Should(Equal(projectFile))
		})

		It("never reports an unsaved project", func() {
			s.windows.SetTitle(flWindow, "Untitled - FL Studio 21")
			s.input.Activity()
			s.windows.Focus(flWindow)
			s.renames.Fire(projectDir, projectFile)

			Consistently(s.calls, 100*time.Millisecond).Should(BeEmpty())
			Expect(s.overlay.Visible()).To(BeFalse())
		})
	})

	Context("when the window comes to the foreground", func() {
		It("waits for input before reporting an idle user", func() {
			s.openProject()

			s.input.Advance(20000)
			s.windows.Focus(flWindow)
			Consistently(s.calls, 100*time.Millisecond).Should(BeEmpty())

			s.clock.Advance(time.Second)
			s.input.Activity()
			s.windows.Focus(flWindow)
			Eventually(s.calls).Should(Equal([]fixtures.ReportCall{{Path: projectPath}}))
			Eventually(s.overlay.Text).Should(Equal("1 hr 5 mins"))
		})

		It("journals every heartbeat", func() {
			s.openProject()
			s.input.Activity()
			s.windows.Focus(flWindow)
			Eventually(s.calls).Should(HaveLen(1))

			records, err := s.journal.Recent(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Entity).To(Equal(projectPath))
			Expect(records[0].Outcome).To(Equal(domain.OutcomeSent))
		})
	})

	Context("when the project is saved", func() {
		It("sends one write heartbeat per burst of renames", func() {
			s.openProject()
			s.input.Activity()

			Expect(s.renames.Fire(projectDir, projectFile)).To(BeTrue())
			Expect(s.renames.Fire(projectDir, projectFile)).To(BeTrue())

			Eventually(s.calls).Should(Equal([]fixtures.ReportCall{{Path: projectPath, IsWrite: true}}))
			Consistently(s.calls, 100*time.Millisecond).Should(HaveLen(1))

			s.clock.Advance(2 * time.Second)
			s.input.Activity()
			s.renames.Fire(projectDir, projectFile)
			Eventually(s.calls).Should(HaveLen(2))
		})
	})

	Context("when FL Studio exits", func() {
		It("stops tracking the instance", func() {
			s.openProject()
			s.procs.Exit(flPID)
			s.windows.DestroyWindow(flWindow)

			Eventually(s.registry.Len).Should(BeZero())
			Expect(s.renames.Active()).To(BeZero())
		})
	})

	Context("when a second FL Studio starts", func() {
		It("tracks the new main window after the grace period", func() {
			s.procs.Spawn(5000, "FL64.exe")
			s.windows.CreateWindow(0x5000, fixtures.FakeWindow{PID: 5000, ThreadID: 50, Class: mainClass, Title: "FL Studio 21"})

			Eventually(s.registry.Len).Should(Equal(2))
		})

		It("ignores windows that disappear during the grace period", func() {
			s.procs.Spawn(5000, "FL64.exe")
			s.windows.CreateWindow(0x5000, fixtures.FakeWindow{PID: 5000, ThreadID: 50, Class: mainClass})
			s.windows.DestroyWindow(0x5000)

			Consistently(s.registry.Len, 100*time.Millisecond).Should(Equal(1))
		})
	})
})

var _ = Describe("Periodic heartbeats", func() {
	It("emits at most once per interval while in the foreground", func() {
		s := newStack(20 * time.Millisecond)
		s.openProject()
		s.input.Activity()
		s.windows.Focus(flWindow)
		Eventually(s.calls).Should(HaveLen(1))

		// The fake clock has not moved, so ticks are inside the interval.
		Consistently(s.calls, 100*time.Millisecond).Should(HaveLen(1))

		s.clock.Advance(time.Minute)
		s.input.Activity()
		Eventually(s.calls).Should(HaveLen(2))
		Consistently(s.calls, 100*time.Millisecond).Should(HaveLen(2))
	})
})
