package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sibexico/HexPager/pager"
)

type fixedSnapshot struct {
	snap pager.SessionSnapshot
}

func (f fixedSnapshot) Snapshot() pager.SessionSnapshot {
	return f.snap
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

var _ = Describe("ProgressBar", func() {
	It("should never move backwards", func() {
		b := NewProgressBar("s", "references")

		b.Update(10, 100)
		b.Update(5, 100)

		rsp := b.snapshot()
		Expect(rsp.Finished).To(Equal(uint64(10)))
		Expect(rsp.Total).To(Equal(uint64(100)))
		Expect(rsp.Percent).To(BeNumerically("~", 10.0, 0.001))
	})

	It("should report zero percent without a total", func() {
		Expect(NewProgressBar("s", "x").snapshot().Percent).To(BeZero())
	})
})

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		router http.Handler
	)

	BeforeEach(func() {
		m = NewMonitor()
		router = m.Router()
	})

	It("should replace privileged ports with a random one", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should report idle before any session", func() {
		rec := get(router, "/api/phase")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp phaseRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Phase).To(Equal("idle"))
		Expect(rsp.History).To(BeEmpty())
	})

	It("should track phases and progress", func() {
		m.PhaseChanged("abc", pager.PhaseLoading)
		m.PhaseChanged("abc", pager.PhaseRunning)
		m.Progress(500, 1000)

		var phase phaseRsp
		Expect(json.Unmarshal(get(router, "/api/phase").Body.Bytes(), &phase)).To(Succeed())
		Expect(phase.SessionID).To(Equal("abc"))
		Expect(phase.Phase).To(Equal("running"))
		Expect(phase.History).To(HaveLen(2))

		var bars []progressRsp
		Expect(json.Unmarshal(get(router, "/api/progress").Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].ID).To(Equal("abc"))
		Expect(bars[0].Finished).To(Equal(uint64(500)))
		Expect(bars[0].Percent).To(BeNumerically("~", 50.0, 0.001))
	})

	It("should keep the highest progress reported for a session", func() {
		m.PhaseChanged("abc", pager.PhaseLoading)
		m.PhaseChanged("abc", pager.PhaseRunning)
		m.Progress(700, 1000)
		m.Progress(300, 1000)

		var bars []progressRsp
		Expect(json.Unmarshal(get(router, "/api/progress").Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Finished).To(Equal(uint64(700)))
	})

	It("should ignore progress outside a running session", func() {
		m.Progress(1, 2)

		var bars []progressRsp
		Expect(json.Unmarshal(get(router, "/api/progress").Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(BeEmpty())
	})

	It("should return 404 without a registered session", func() {
		Expect(get(router, "/api/session").Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize the registered session", func() {
		m.RegisterSession(fixedSnapshot{pager.SessionSnapshot{
			ID:     "session-1",
			Phase:  "running",
			Frames: []int{3, -1},
			Hits:   4,
		}})

		rec := get(router, "/api/session")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
		Expect(json.Valid(rec.Body.Bytes())).To(BeTrue())
	})

	It("should serve a live session end to end", func() {
		s, err := pager.NewSession(nil, pager.WithObserver(m), pager.WithoutSweeper())
		Expect(err).NotTo(HaveOccurred())
		m.RegisterSession(s)

		_, err = s.Run(pager.ReaderSource{Reader: strings.NewReader("NP=2\na,0,0,R\nb,1,0,W\nc,0,0,R\n")})
		Expect(err).NotTo(HaveOccurred())

		var phase phaseRsp
		Expect(json.Unmarshal(get(router, "/api/phase").Body.Bytes(), &phase)).To(Succeed())
		Expect(phase.Phase).To(Equal("terminal"))
		Expect(phase.History).To(HaveLen(5))

		var bars []progressRsp
		Expect(json.Unmarshal(get(router, "/api/progress").Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Finished).To(Equal(uint64(3)))
		Expect(bars[0].Total).To(Equal(uint64(3)))
	})

	It("should report process resources", func() {
		rec := get(router, "/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should reject invalid profile durations", func() {
		Expect(get(router, "/api/profile?duration=abc").Code).To(Equal(http.StatusBadRequest))
		Expect(get(router, "/api/profile?duration=1h").Code).To(Equal(http.StatusBadRequest))
	})

	It("should collect a short CPU profile", func() {
		rec := get(router, "/api/profile?duration=50ms")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Valid(rec.Body.Bytes())).To(BeTrue())
	})

	It("should serve on a random port", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		rsp, err := http.Get(url + "/api/phase")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		body, _ := io.ReadAll(rsp.Body)
		Expect(string(body)).To(ContainSubstring(`"phase":"idle"`))
	})

	It("should close without a server", func() {
		Expect(m.Close()).To(Succeed())
	})
})
