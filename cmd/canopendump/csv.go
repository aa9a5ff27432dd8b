package main

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"github.com/aldas/go-canopen-client"
	"os"
	"strconv"
)

var transferCSVHeader = []string{"time_ms", "node", "kind", "index", "sub_index", "expedited", "aborted", "abort_code", "data"}

// transferCSV appends completed SDO transfers to CSV file. Header is written when file is created.
type transferCSV struct {
	fileName string
}

func newTransferCSV(fileName string) *transferCSV {
	return &transferCSV{fileName: fileName}
}

func (c *transferCSV) Write(t canopen.Transfer) error {
	return writeCSV(c.fileName, transferCSVHeader, transferCSVRow(t))
}

func transferCSVRow(t canopen.Transfer) []string {
	abortCode := ""
	if t.Aborted {
		abortCode = fmt.Sprintf("0x%08x", t.AbortCode)
	}
	return []string{
		strconv.FormatInt(t.Time.UnixMilli(), 10),
		strconv.FormatUint(uint64(t.Node), 10),
		t.Kind.String(),
		fmt.Sprintf("0x%04x", t.Index),
		strconv.FormatUint(uint64(t.SubIndex), 10),
		strconv.FormatBool(t.Expedited),
		strconv.FormatBool(t.Aborted),
		abortCode,
		hex.EncodeToString(t.Data),
	}
}

func writeCSV(fileName string, header []string, values []string) error {
	fileExists := false
	fi, err := os.Stat(fileName)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("csv file check failure, err: %s", err)
	}
	if fi != nil {
		fileExists = true
		if fi.IsDir() {
			return fmt.Errorf("csv file overlaps with directory, file: %s", fileName)
		}
	}

	var csvFile *os.File
	if fileExists {
		csvFile, err = os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		csvFile, err = os.Create(fileName)
	}
	if err != nil {
		return err
	}
	defer csvFile.Close()

	csvwriter := csv.NewWriter(csvFile)

	if !fileExists {
		if err := csvwriter.Write(header); err != nil {
			return fmt.Errorf("csv failed to write header, err: %s", err)
		}
	}
	if err := csvwriter.Write(values); err != nil {
		return fmt.Errorf("csv failed to write row, err: %s", err)
	}
	csvwriter.Flush()

	return csvwriter.Error()
}
