package record

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inference-sim/csim/sim"
	"github.com/inference-sim/csim/sim/trace"
)

var _ = Describe("SQLiteWriter", func() {
	var (
		dir    string
		dbPath string
		writer *SQLiteWriter
	)

	openDB := func() *sql.DB {
		db, err := sql.Open("sqlite3", dbPath)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		return db
	}

	countRows := func(db *sql.DB, table string) int {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		dbPath = filepath.Join(dir, "run.sqlite3")

		var err error
		writer, err = NewSQLiteWriter(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(writer.Close()).To(Succeed())
	})

	It("should create the database at the given path", func() {
		Expect(writer.Path()).To(Equal(dbPath))
		Expect(writer.RunID()).NotTo(BeEmpty())
		_, err := os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should refuse to overwrite an existing database", func() {
		_, err := NewSQLiteWriter(dbPath)
		Expect(err).To(MatchError(ErrDatabaseExists))
	})

	It("should record one row per access of a replayed trace", func() {
		text := "I 400,4\n L 0,1\n M 2,1\n S 2,1\n"
		g := sim.Geometry{SetBits: 0, Associativity: 1, BlockBits: 1}

		counters, err := sim.Simulate(g, trace.NewReader(strings.NewReader(text)), writer)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.WriteSummary(g, counters)).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		db := openDB()
		Expect(countRows(db, "accesses")).To(Equal(4))

		rows, err := db.Query(`SELECT seq, sub, kind, address, tag, way, outcome
			FROM accesses ORDER BY seq, sub`)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = rows.Close() }()

		type row struct {
			seq, sub int
			kind     string
			addr     string
			tag      string
			way      int
			outcome  string
		}
		var got []row
		for rows.Next() {
			var r row
			Expect(rows.Scan(&r.seq, &r.sub, &r.kind, &r.addr, &r.tag, &r.way, &r.outcome)).To(Succeed())
			got = append(got, r)
		}
		Expect(rows.Err()).NotTo(HaveOccurred())
		Expect(got).To(Equal([]row{
			{0, 0, "L", "0x0", "0x0", 0, "miss"},
			{1, 0, "M", "0x2", "0x1", 0, "miss eviction"},
			{1, 1, "M", "0x2", "0x1", 0, "hit"},
			{2, 0, "S", "0x2", "0x1", 0, "hit"},
		}))

		var hits, misses, evictions int
		var runID string
		err = db.QueryRow("SELECT run_id, hits, misses, evictions FROM runs").
			Scan(&runID, &hits, &misses, &evictions)
		Expect(err).NotTo(HaveOccurred())
		Expect(runID).To(Equal(writer.RunID()))
		Expect([]int{hits, misses, evictions}).To(Equal([]int{2, 2, 1}))
	})

	It("should write in batches once the buffer fills", func() {
		writer.SetBatchSize(2)
		ev := trace.Event{Kind: trace.Load, Address: 0x40, Size: 8, Line: 1}
		res := []sim.AccessResult{{Address: 0x40, SetIndex: 1, Tag: 0, Outcome: sim.Miss}}

		writer.ObserveEvent(0, ev, res)
		db := openDB()
		Expect(countRows(db, "accesses")).To(Equal(0))

		writer.ObserveEvent(1, ev, res)
		Expect(countRows(db, "accesses")).To(Equal(2))
	})

	It("should store addresses above the signed 64-bit range", func() {
		ev := trace.Event{Kind: trace.Store, Address: ^uint64(0), Size: 8}
		writer.ObserveEvent(0, ev, []sim.AccessResult{{Address: ^uint64(0), Tag: ^uint64(0) >> 6, Outcome: sim.Miss}})
		Expect(writer.Flush()).To(Succeed())

		var addr string
		Expect(openDB().QueryRow("SELECT address FROM accesses").Scan(&addr)).To(Succeed())
		Expect(addr).To(Equal("0xffffffffffffffff"))
	})

	It("should ignore events after close", func() {
		Expect(writer.Close()).To(Succeed())
		writer.ObserveEvent(0, trace.Event{Kind: trace.Load}, []sim.AccessResult{{Outcome: sim.Miss}})
		Expect(writer.Flush()).To(Succeed())
		Expect(writer.WriteSummary(sim.Geometry{}, sim.Counters{})).To(HaveOccurred())
	})

	It("should remove the database when a failed run is discarded", func() {
		ev := trace.Event{Kind: trace.Load, Address: 0x40, Size: 8, Line: 1}
		writer.ObserveEvent(0, ev, []sim.AccessResult{{Address: 0x40, Outcome: sim.Miss}})

		Expect(writer.Discard()).To(Succeed())

		_, err := os.Stat(dbPath)
		Expect(os.IsNotExist(err)).To(BeTrue())
		Expect(writer.Flush()).To(Succeed())
		Expect(writer.Close()).To(Succeed())
	})
})
