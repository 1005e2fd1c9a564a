package mail

import "html/template"

// Emails go out in Malay; the customer base is Malaysian teachers using the
// IDME PBD Helper extension.

const customerSubject = "License Key Anda - IDME PBD Helper PRO"

var customerTemplate = template.Must(template.New("customer").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #667eea; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
      <h1>Tahniah {{.CustomerName}}!</h1>
      <p>Terima kasih kerana membeli IDME PBD Helper PRO</p>
    </div>

    <div style="background: #f8f9fa; padding: 30px;">
      <div style="background: white; border: 3px solid #667eea; border-radius: 10px; padding: 20px; margin: 20px 0; text-align: center;">
        <h2 style="color: #667eea; margin-top: 0;">License Key Anda</h2>
        <div style="font-size: 24px; font-weight: bold; color: #667eea; letter-spacing: 2px;">{{.Key}}</div>
        <p style="color: #666; font-size: 14px;">Sila simpan license key ini dengan selamat</p>
      </div>

      <div style="background: #e3f2fd; border-left: 4px solid #2196f3; padding: 15px; margin: 20px 0;">
        <strong>Maklumat License:</strong><br>
        Nama: {{.CustomerName}}<br>
        Email: {{.Email}}<br>
        Tarikh Luput: {{.Expiry}} ({{.DurationDays}} hari)<br>
        Jumlah Bayaran: {{.TotalPaid}}<br>
        Device Limit: {{.MaxDevices}} peranti
      </div>

      <div style="background: white; padding: 20px; border-radius: 10px; margin: 20px 0;">
        <h3 style="color: #667eea; margin-top: 0;">Cara Activate License</h3>
        <ol>
          <li>Install IDME PBD Helper dari Chrome Web Store (jika belum)</li>
          <li>Buka extension dan klik Settings / PRO Features</li>
          <li>Masukkan license key: <code>{{.Key}}</code></li>
          <li>Klik Activate dan anda sudah boleh guna semua PRO features</li>
        </ol>
      </div>

      <div style="background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0;">
        <strong>PENTING:</strong><br>
        License ini boleh digunakan pada maksimum <strong>{{.MaxDevices}} peranti</strong>.<br>
        Sila jangan share license key dengan orang lain.<br>
        License akan expire pada <strong>{{.Expiry}}</strong>.<br>
        Anda akan menerima reminder email {{.ReminderDays}} hari sebelum expire.
      </div>

      <div style="text-align: center; color: #666; margin-top: 30px;">
        <p>Ada masalah? Hubungi kami:<br>
        Email: {{.AdminEmail}}{{if .SupportURL}}<br>
        Support: <a href="{{.SupportURL}}">{{.SupportURL}}</a>{{end}}</p>
      </div>
    </div>
  </div>
</body>
</html>
`))

const adminSubject = "Pembelian License Baru - "

var adminTemplate = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px; background: #f8f9fa;">
    <div style="background: #667eea; color: white; padding: 20px; text-align: center; border-radius: 10px 10px 0 0;">
      <h2>Pembelian License Baru</h2>
    </div>
    <div style="background: white; padding: 20px;">
      <h3>Maklumat Pelanggan:</h3>
      <p>
        Nama: {{.CustomerName}}<br>
        Email: {{.Email}}<br>
        Telefon: {{.Phone}}<br>
        License Key: <strong>{{.Key}}</strong><br>
        Jumlah: {{.TotalPaid}}<br>
        Masa: {{.PurchasedAt}}
      </p>
      {{if .ReceiptURL}}<p><a href="{{.ReceiptURL}}">Lihat Resit</a></p>{{end}}
      <p style="padding: 15px; background: #e3f2fd; border-left: 4px solid #2196f3;">
        <strong>License telah auto-generated dan dihantar ke customer.</strong><br>
        Sila verify payment dan update status jika perlu.
      </p>
    </div>
  </div>
</body>
</html>
`))

const reminderSubject = "Peringatan: License Anda Akan Tamat - IDME PBD Helper PRO"

var reminderTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #ffc107; color: #333; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
      <h1>Peringatan License</h1>
    </div>
    <div style="background: #f8f9fa; padding: 30px;">
      <p>Salam {{.CustomerName}},</p>
      <p>License IDME PBD Helper PRO anda akan tamat dalam
        <strong>{{.DaysLeft}} hari</strong> lagi, pada <strong>{{.Expiry}}</strong>.</p>
      <div style="background: white; border: 2px solid #ffc107; border-radius: 10px; padding: 20px; margin: 20px 0; text-align: center;">
        <div style="font-size: 20px; font-weight: bold; letter-spacing: 2px;">{{.Key}}</div>
      </div>
      <p>Sila renew license anda sebelum tarikh tersebut untuk terus menggunakan
        semua PRO features tanpa gangguan.</p>
      <p>Ada masalah? Hubungi kami: {{.AdminEmail}}</p>
    </div>
  </div>
</body>
</html>
`))
